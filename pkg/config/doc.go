// Package config provides configuration for the reclaim command: the shape of
// the pool under test, the frame-loop workload driving it, and logging and
// metrics settings.
//
// # Key Features
//
// - BenchConfig: one structure holding every section
// - PoolConfig: pool kind and capacities, validated per kind
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults from NewBenchConfig, validation with Validate
//
// # Usage
//
// ## Loading from YAML
//
//	cfg := config.NewBenchConfig("particles")
//	if err := config.Load("bench.yaml", cfg); err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Fields missing from the file keep the defaults of the value passed to Load.
//
// ## Environment Variable Substitution
//
//	# bench.yaml
//	name: particles
//	pool:
//	  kind: tiered
//	  local_capacity: 32
//	  shared_capacity: ${RECLAIM_SHARED_CAPACITY}
//	workload:
//	  workers: 8
//	  frames: 600
//
// # Configuration Structure
//
//	type BenchConfig struct {
//		Name    string `yaml:"name"`
//		Version string `yaml:"version"`
//
//		Pool          PoolConfig          `yaml:"pool"`
//		Workload      WorkloadConfig      `yaml:"workload"`
//		Compression   CompressionConfig   `yaml:"compression"`
//		Observability ObservabilityConfig `yaml:"observability"`
//	}
//
// The reclaim command layers flags and RECLAIM_* environment variables over
// the file with viper; the struct tags carry yaml, json and mapstructure names
// so every layer agrees on field names.
package config
