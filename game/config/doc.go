// Package config provides configuration management for grid world environments.
//
// The config package handles:
//   - Loading environment configurations from JSON or YAML files
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Configurations live in a single directory (configs/ by default). A config
// may be requested by bare name; the manager tries .json, .yaml and .yml in
// that order. Each configuration defines:
//   - Grid size, goal cell and penalty cells
//   - Optional reward overrides (goal, penalty, step)
//   - Sprite file names and cell size for renderers
//   - Messages shown to observers
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("cliff")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default is classic when present, otherwise the first valid config on
// disk, otherwise engine.DefaultGameConfig. SaveConfig always writes JSON.
package config
