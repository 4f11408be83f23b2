// Package repository define los contratos de dominio del gateway.
//
// Son independientes del almacenamiento (MongoDB, PostgreSQL, memoria).
// Las implementaciones viven en internal/store/adapters/.
//
//	┌──────────────────────────────────────────┐
//	│   middlewares.RequireUser / reconcile     │
//	└──────────────────────────────────────────┘
//	                    │
//	                    ▼
//	┌──────────────────────────────────────────┐
//	│   domain/repository.UserRepository       │
//	└──────────────────────────────────────────┘
//	                    │
//	       ┌────────────┼────────────┐
//	       ▼            ▼            ▼
//	   adapters/     adapters/    adapters/
//	     mongo       postgres      memory
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
package repository
