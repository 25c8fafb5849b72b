// Package config provides configuration loading, merging, and path management for Coreassist.
//
// This package handles the complex configuration system that supports multiple sources
// and formats, with a hierarchical loading strategy that ensures proper precedence
// and compatibility with both TypeScript and Go implementations.
//
// # Configuration Loading
//
// The Load function implements a sophisticated configuration loading strategy that
// searches for and merges configuration from multiple sources in priority order:
//
//  1. Global config (~/.coreassist/ - TypeScript compatible)
//  2. Global config (~/.config/coreassist/ - XDG compatible)
//  3. Project configs discovered while walking up from the working directory
//     (coreassist.json/coreassist.jsonc and .coreassist/coreassist.json/coreassist.jsonc)
//  4. COREASSIST_CONFIG file
//  5. COREASSIST_CONFIG_CONTENT inline JSON
//  6. Environment variables
//
// Configuration files are loaded in a specific order to ensure that more specific
// configurations override more general ones, while environment variables have the
// highest precedence.
//
// # Supported Formats
//
// The package supports both JSON and JSONC (JSON with Comments) formats:
//   - coreassist.json - Standard JSON configuration
//   - coreassist.jsonc - JSON with comments, processed using tidwall/jsonc
//
// # Variable Interpolation
//
// Configuration files support two types of variable interpolation:
//   - {env:VAR_NAME} - Expands to environment variable values
//   - {file:path} - Expands to file contents (properly escaped for JSON)
//
// File paths in {file:path} placeholders support:
//   - Absolute paths
//   - Relative paths (resolved relative to config file directory)
//   - Home directory expansion (~/)
//
// Example configuration with interpolation:
//
//	{
//	  "provider": {
//	    "anthropic": {
//	      "options": {
//	        "apiKey": "{env:ANTHROPIC_API_KEY}"
//	      }
//	    }
//	  },
//	  "instructions": [
//	    "{file:~/custom-instructions.txt}"
//	  ]
//	}
//
// # Configuration Merging
//
// When multiple configuration sources are found, they are merged using a deep merge
// strategy that:
//   - Overwrites scalar values (strings, booleans, numbers)
//   - Merges maps/objects by combining keys
//   - Appends to arrays/slices
//   - Preserves the last-loaded value for conflicts
//
// # Path Management
//
// The package provides XDG Base Directory Specification compliant path management
// through the Paths type:
//   - Data: ~/.local/share/coreassist (XDG_DATA_HOME)
//   - Config: ~/.config/coreassist (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/coreassist (XDG_CACHE_HOME)
//   - State: ~/.local/state/coreassist (XDG_STATE_HOME)
//
// On Windows, these paths are adapted to use APPDATA as appropriate.
//
// # Environment Variable Overrides
//
// Several environment variables provide direct configuration overrides:
//   - COREASSIST_MODEL - Override the default model
//   - COREASSIST_SMALL_MODEL - Override the small model
//   - COREASSIST_PERMISSION - JSON string for permission configuration
//   - COREASSIST_CONFIG - Path to a specific config file
//   - COREASSIST_CONFIG_CONTENT - Inline JSON configuration
//   - COREASSIST_CONFIG_DIR - Override the config directory location
//
// # TypeScript Compatibility
//
// The configuration system maintains compatibility with the TypeScript implementation
// by supporting the ~/.coreassist directory structure and TypeScript-style provider
// configuration with Options objects.
//
// # Usage Example
//
//	// Load configuration from the current directory
//	config, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Get standard paths
//	paths := config.GetPaths()
//	err = paths.EnsurePaths() // Create directories if they don't exist
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save configuration
//	err = config.Save(config, paths.GlobalConfigPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Project Structure Discovery
//
// The configuration loader walks up the directory tree from the specified starting
// directory, stopping at either:
//   - A directory containing a .git folder (Git repository root)
//   - The filesystem root
//
// This ensures that project-specific configurations are properly discovered while
// respecting project boundaries.
package config