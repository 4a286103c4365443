// Package config loads deque server and CLI configuration. Default()
// gives a working baseline (Redis on localhost), Load overlays a JSON or
// YAML file chosen by extension, and FromEnv overlays DEQUE_* variables.
//
//	cfg, err := config.Load("/etc/deque.yaml")
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
