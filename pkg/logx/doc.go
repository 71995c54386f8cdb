// Package logx configures stampbot's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Sinks/levels hot-swappable on config reload (Service.Apply)
package logx
