package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stacsearch/pkg/auth"
	"stacsearch/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API credentials",
	Long: `Manage stored API credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (STACSEARCH_API_TOKEN)

Public STAC APIs need no credentials; commercial endpoints usually do.`,
}

// setCmd represents the auth set command
var setCmd = &cobra.Command{
	Use:   "set [profile]",
	Short: "Store an API token securely",
	Long: `Store an API token securely in the system keychain or encrypted file.

You will be prompted for:
  - Profile name (if not provided)
  - API token
  - API base URL (optional, press Enter to use the default)`,
	Example: `  # Interactive setup
  stacsearch auth set

  # Store under a named profile
  stacsearch auth set planetary`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthSet,
}

// removeCmd represents the auth remove command
var removeCmd = &cobra.Command{
	Use:   "remove [profile]",
	Short: "Remove stored credentials",
	Long: `Remove stored API credentials.

If no profile name is provided, you will be shown a list of stored profiles
to choose from. You can also remove all profiles at once.`,
	Example: `  # Interactive removal
  stacsearch auth remove

  # Remove a specific profile
  stacsearch auth remove planetary`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthRemove,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored profiles",
	Long:  `List all stored credential profiles with tokens masked.`,
	Run:   runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setCmd)
	authCmd.AddCommand(removeCmd)
	authCmd.AddCommand(authListCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if name == "" {
		fmt.Print("Profile name (e.g. default): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read profile name", err.Error())
			os.Exit(1)
		}
		name = strings.TrimSpace(input)
	}

	if name == "" {
		name = "default"
	}

	// Check if the profile already exists
	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("Profile '%s' already exists. Update token? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("API token (input hidden): ")
	token, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read token", err.Error())
		os.Exit(1)
	}

	if token == "" {
		ui.PrintError("Token is required", "")
		os.Exit(1)
	}

	fmt.Print("API base URL (press Enter to use the default): ")
	baseURL, _ := reader.ReadString('\n')
	baseURL = strings.TrimSpace(baseURL)

	profile := &auth.Profile{
		Name:         name,
		Token:        token,
		BaseURL:      baseURL,
		LastModified: time.Now(),
	}

	if err := manager.Store(profile); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Profile saved: " + name)
	fmt.Println("\nUse the --profile flag to search with this profile:")
	fmt.Printf("  stacsearch search --profile %s ...\n", name)
}

func runAuthRemove(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if len(args) > 0 {
		name := args[0]
		if err := manager.Delete(name); err != nil {
			ui.PrintError("Failed to remove profile", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Profile removed: " + name)
		return
	}

	profiles, err := manager.List()
	if err != nil || len(profiles) == 0 {
		ui.PrintError("No stored profiles found", "")
		return
	}

	reader := bufio.NewReader(os.Stdin)

	if len(profiles) == 1 {
		profile := profiles[0]
		fmt.Printf("Remove profile '%s'? (y/N): ", profile.Name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}

		if err := manager.Delete(profile.Name); err != nil {
			ui.PrintError("Failed to remove profile", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Profile removed: " + profile.Name)
		return
	}

	fmt.Println("Select profile to remove:")
	for i, profile := range profiles {
		fmt.Printf("  %d. %s\n", i+1, profile.Name)
	}
	fmt.Printf("  %d. Remove all profiles\n", len(profiles)+1)
	fmt.Printf("  0. Cancel\n\n")

	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return
	case choice == len(profiles)+1:
		fmt.Print("Remove ALL profiles? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return
		}

		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove all profiles", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("All profiles removed")
	case choice > 0 && choice <= len(profiles):
		profile := profiles[choice-1]
		if err := manager.Delete(profile.Name); err != nil {
			ui.PrintError("Failed to remove profile", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Profile removed: " + profile.Name)
	default:
		ui.PrintError("Invalid choice", "")
		os.Exit(1)
	}
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	profiles, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list profiles", err.Error())
		os.Exit(1)
	}

	if len(profiles) == 0 {
		ui.PrintInfo("No stored profiles", "Use 'stacsearch auth set' to add one")
		return
	}

	ui.PrintHighlight("Stored Profiles")
	fmt.Println()

	for i, profile := range profiles {
		sanitized := auth.SanitizeProfile(profile)
		fmt.Printf("%d. Profile: %s\n", i+1, sanitized.Name)
		fmt.Printf("   Token: %s\n", sanitized.Token)
		if sanitized.BaseURL != "" {
			fmt.Printf("   API URL: %s\n", sanitized.BaseURL)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
