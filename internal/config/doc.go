// Package config provides loading and environment overlay for bee
// configuration. Default() uses keys bee_msgs,
// writer and err_msgs; a 5000 ms writer lease; 500 ms write and 1000 ms read
// delays; one error in twenty.
//
// Example:
//
//	cfg, err := config.Load("/etc/bee.yaml")
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
//	defer rt.Close()
package config
