package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetViper clears viper's global state between CLI tests so flag and
// env bindings from one test don't leak into the next.
func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("FALCONERI")
	viper.AutomaticEnv()
	viper.SetDefault("url", "http://localhost:8089")

	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
}
