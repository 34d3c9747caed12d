package cli

import "os"

// setenvIfDiffers writes key=val into the process environment only when the
// current value differs, so config.Load (which reads os.Getenv directly)
// picks up flag/file-sourced overrides without clobbering an explicit env
// var with an identical value.
func setenvIfDiffers(key, val string) {
	if os.Getenv(key) == val {
		return
	}
	_ = os.Setenv(key, val)
}
