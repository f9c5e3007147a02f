// Package repository define los contratos de persistencia de cuentas y sesiones.
//
// Las implementaciones viven en internal/store/{pg,memory}:
//
//	┌────────────────────────────────────────┐
//	│   social.Service (resolver, sesiones)  │
//	└────────────────────────────────────────┘
//	                    │
//	                    ▼
//	┌────────────────────────────────────────┐
//	│ AccountRepository, SessionRepository   │
//	└────────────────────────────────────────┘
//	           │                  │
//	           ▼                  ▼
//	   store/pg (pgx)      store/memory
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
package repository
