//go:build debug

package debug

// DEBUG gates the verbose compiler/VM tracing. Build with `-tags debug` to
// turn it on; it is off by default so normal builds pay nothing for it.
const DEBUG = true
