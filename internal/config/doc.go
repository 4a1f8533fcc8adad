// Package config manages hubsync process settings.
//
// It handles:
//   - Reading the YAML settings file
//   - Environment overrides (including a .env file)
//   - Building the remote-resolution policy and operator identity
//
// Settings are a plain value handed to engine.NewHub; nothing here is global.
package config
