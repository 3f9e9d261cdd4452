package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ryanm101/gameshelf/internal/config"
)

func handleConfigCommand(args []string) int {
	if len(args) < 1 {
		fmt.Println("Usage: gameshelf config <command>")
		fmt.Println("Commands: show, init")
		return 1
	}

	switch args[0] {
	case "show":
		return showConfig()
	case "init":
		return initConfig(".gameshelf.yaml")
	default:
		fmt.Printf("Unknown config command: %s\n", args[0])
		return 1
	}
}

func showConfig() int {
	if outputCfg.JSON {
		PrintResult(cfg)
		return 0
	}

	shown := *cfg
	shown.Catalog.APIKey = mask(shown.Catalog.APIKey)
	shown.Catalog.IGDB.ClientSecret = mask(shown.Catalog.IGDB.ClientSecret)

	data, err := yaml.Marshal(shown)
	if err != nil {
		PrintError("Error: failed to marshal config: %v\n", err)
		return 1
	}

	fmt.Println("# Active Configuration")
	fmt.Println(string(data))
	if cfgPath != "" {
		fmt.Println("# Config file:", cfgPath)
	} else {
		fmt.Println("# Config file: none (defaults)")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("# Problems:")
		fmt.Println(err)
		return 1
	}
	return 0
}

func initConfig(configPath string) int {
	if _, err := os.Stat(configPath); err == nil {
		PrintError("Error: config file already exists at %s\n", configPath)
		return 1
	}

	if err := os.WriteFile(configPath, []byte(config.Example), 0o600); err != nil {
		PrintError("Error: failed to write config: %v\n", err)
		return 1
	}

	if outputCfg.JSON {
		PrintResult(map[string]string{"path": configPath, "status": "created"})
	} else {
		PrintInfo("Created config file: %s\n", configPath)
	}
	return 0
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
