// Package config loads process configuration from FFIBRIDGE_* environment
// variables and derives the logger, binding options and host module
// configuration from it.
//
//	FFIBRIDGE_LOG_LEVEL       debug, info, warn (default), error
//	FFIBRIDGE_LOG_FORMAT      console (default) or json
//	FFIBRIDGE_MODULE_NAME     WebAssembly import module name, default ffi
//	FFIBRIDGE_ARENA_PAGES     arena growth step in 64 KiB pages, default 1
//	FFIBRIDGE_MAX_PAGES       in-process address space cap, default 256
//	FFIBRIDGE_MAX_STRING_LEN  longest borrowed string read, default 1 MiB
package config
