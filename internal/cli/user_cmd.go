package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const minPasswordLength = 6

// userCmd represents the user command group
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Dashboard operators",
	Long:  `Create, list, delete operators and reset their passwords.`,
}

var stdin = bufio.NewReader(os.Stdin)

func readLine(prompt string) string {
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil {
		fail("failed to read input: %v", err)
	}
	return strings.TrimSpace(line)
}

// readNewPassword prompts twice with hidden input
func readNewPassword(prompt string) string {
	fmt.Printf("%s (at least %d characters): ", prompt, minPasswordLength)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fail("failed to read password: %v", err)
	}
	password := string(passwordBytes)
	if len(password) < minPasswordLength {
		fail("password must be at least %d characters", minPasswordLength)
	}

	fmt.Print("Repeat password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fail("failed to read password: %v", err)
	}
	if password != string(confirmBytes) {
		fail("passwords do not match")
	}
	return password
}

// pickUser lists operators and reads an id
func pickUser(action string) *models.User {
	users, err := userService.ListUsers()
	if err != nil {
		fail("failed to list users: %v", err)
	}
	if len(users) == 0 {
		fmt.Println("No users.")
		os.Exit(0)
	}

	fmt.Println("Users:")
	for _, u := range users {
		fmt.Printf("  [%d] %s (%s)\n", u.ID, u.Username, u.FullName)
	}
	fmt.Println()

	userID, err := strconv.ParseUint(readLine(fmt.Sprintf("User ID to %s: ", action)), 10, 32)
	if err != nil {
		fail("invalid user id")
	}
	target, err := userService.GetUserByID(uint(userID))
	if err != nil {
		fail("%v", err)
	}
	return target
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an operator",
	Long:  `Interactively create an operator with username, password, email and full name.`,
	Run: func(cmd *cobra.Command, args []string) {
		username := readLine("Username: ")
		if username == "" {
			fail("username cannot be empty")
		}
		password := readNewPassword("Password")
		email := readLine("Email (optional): ")
		fullName := readLine("Full name (optional): ")

		newUser, err := userService.CreateUser(username, password, email, fullName)
		if err != nil {
			fail("failed to create user: %v", err)
		}

		fmt.Println()
		fmt.Println("User created.")
		fmt.Printf("  ID: %d\n", newUser.ID)
		fmt.Printf("  Username: %s\n", newUser.Username)
		if newUser.FullName != "" {
			fmt.Printf("  Full name: %s\n", newUser.FullName)
		}
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List operators",
	Run: func(cmd *cobra.Command, args []string) {
		users, err := userService.ListUsers()
		if err != nil {
			fail("failed to list users: %v", err)
		}
		if len(users) == 0 {
			fmt.Println("No users.")
			return
		}

		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("%-6s %-20s %-28s %s\n", "ID", "Username", "Email", "Created")
		fmt.Println("----------------------------------------------------------------------")
		for _, u := range users {
			fmt.Printf("%-6d %-20s %-28s %s\n", u.ID, u.Username, u.Email, u.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("%d user(s)\n", len(users))
	},
}

var userResetPwdCmd = &cobra.Command{
	Use:   "reset-pwd",
	Short: "Reset an operator's password",
	Run: func(cmd *cobra.Command, args []string) {
		target := pickUser("reset")

		fmt.Printf("\nAbout to reset the password of '%s' (ID: %d).\n", target.Username, target.ID)
		if !confirm("Continue?") {
			fmt.Println("Cancelled.")
			return
		}

		newPassword := readNewPassword("New password")
		if err := userService.ResetPassword(target.ID, newPassword); err != nil {
			fail("failed to reset password: %v", err)
		}
		logService.LogInfo(0, models.LogModuleCLI, "reset_password", "Password reset from the command line", map[string]interface{}{
			"target_user": target.Username,
		})

		fmt.Printf("\nPassword of '%s' reset.\n", target.Username)
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an operator",
	Run: func(cmd *cobra.Command, args []string) {
		target := pickUser("delete")

		if !confirm(fmt.Sprintf("Delete user '%s'?", target.Username)) {
			fmt.Println("Cancelled.")
			return
		}
		if err := userService.DeleteUser(target.ID); err != nil {
			fail("failed to delete user: %v", err)
		}
		logService.LogInfo(0, models.LogModuleCLI, "delete_user", "User deleted from the command line", map[string]interface{}{
			"target_user": target.Username,
		})

		fmt.Printf("User '%s' deleted.\n", target.Username)
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userResetPwdCmd)
	userCmd.AddCommand(userDeleteCmd)
}
