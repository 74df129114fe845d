// Command validate provides a small CLI that validates grid configuration
// files (.json, .yaml, .yml) in the ../configs directory. It checks:
//   - File format and required fields (name, grid_size, goal)
//   - Grid bounds: 2 <= grid_size <= 50, goal and penalty cells on the grid
//   - Penalty cells never overlap the goal or the start cell
//   - Reward table sanity: the goal pays more than a step, a penalty costs more than a step
//   - Connectivity: the goal is reachable from the start without entering a penalty cell
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/gridworld/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	config, err := engine.LoadGameConfig(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	grid := config.Grid()

	// Validate rewards
	r := grid.Rewards
	if r.Goal <= r.Step {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("rewards.goal (%.2f) must exceed rewards.step (%.2f)", r.Goal, r.Step))
	}
	if r.Penalty >= r.Step {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("rewards.penalty (%.2f) must be below rewards.step (%.2f)", r.Penalty, r.Step))
	}

	// Duplicate penalty cells are tolerated by the environment but usually a typo
	seen := make(map[engine.Position]bool)
	for _, p := range config.Penalties {
		if seen[p] {
			result.Errors = append(result.Errors, fmt.Sprintf("⚠ duplicate penalty cell %s", p))
		}
		seen[p] = true
	}

	// Connectivity validation
	if result.Valid {
		connectivity := validateConnectivity(grid)
		if !connectivity.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, connectivity.Errors...)
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", config.GridSize, config.GridSize))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Goal: %s", config.Goal))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Penalty cells: %d", len(seen)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Rewards: goal %.2f, penalty %.2f, step %.2f", r.Goal, r.Penalty, r.Step))
	}

	return result
}

// validateConnectivity ensures the goal is reachable from the start cell using
// 4-directional movement without entering a penalty cell.
func validateConnectivity(grid engine.Grid) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	path, ok := engine.ShortestPath(grid)
	if !ok {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Connectivity failure: goal %s unreachable from start %s without entering a penalty cell", grid.Goal, grid.Start()))
		return result
	}

	result.Errors = append(result.Errors, fmt.Sprintf("✓ Connectivity: goal reachable in %d steps (best return %.2f)",
		len(path), engine.BestReturn(grid.Rewards, len(path))))
	return result
}

// configFiles lists the configuration files in dir, sorted by name
func configFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// main scans the config directory and validates each file, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := flag.String("dir", "../configs", "Directory containing grid configurations")
	flag.Parse()

	files, err := configFiles(*configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No configuration files found in %s\n", *configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
