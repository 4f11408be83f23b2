// Package logger provee un logger Zap singleton con scoping por contexto.
//
// # Decisiones
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Scoping: cada request lleva su propio logger con request_id, method y path,
//     y el gateway le agrega external_id / user_id cuando los conoce.
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//
// # Uso
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "codepulse"})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("user reconciled", logger.ExternalID(id), logger.UserID(u.ID))
package logger
