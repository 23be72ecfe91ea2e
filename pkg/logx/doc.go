// Package logx is a thin structured-logging layer over zerolog.
//
// It exists so the rest of the codebase logs through one stable API while
// sinks (console, file, telegram) can be swapped at runtime from config.
package logx
