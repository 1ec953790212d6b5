package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"accounts-api/internal/config"
	"accounts-api/internal/database"
	"accounts-api/internal/logging"
	"accounts-api/internal/user"
)

// readPassword reads a password from the terminal without echoing it.
// Swappable in tests.
var readPassword = term.ReadPassword

func main() {
	rootCmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a superuser account",
		Long:  "Create an account with staff and superuser privileges. Email and name may be passed as flags; anything missing is prompted for, and the password is always entered twice without echo.",
		RunE:  runCreate,
	}

	rootCmd.Flags().String("email", "", "Email address for the new superuser")
	rootCmd.Flags().String("name", "", "Display name for the new superuser")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCreate(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")

	reader := bufio.NewReader(os.Stdin)

	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	// Name is optional; an empty answer leaves it blank
	if name == "" && !cmd.Flags().Changed("name") {
		fmt.Print("Name: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read name: %w", err)
		}
		name = strings.TrimSpace(line)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	cfg := config.LoadDatabase()
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	svc := user.NewService(user.NewPostgresRepository(db), logging.NewLogger(true))

	created, err := svc.CreateSuperuser(context.Background(), email, name, password)
	if err != nil {
		return fmt.Errorf("failed to create superuser: %w", err)
	}

	fmt.Printf("Superuser %s created.\n", created.Email)
	return nil
}

// promptPassword asks for the password twice without echoing and
// insists the two entries match.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := readPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Print("Password (again): ")
	second, err := readPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("password entries do not match")
	}

	return string(first), nil
}
