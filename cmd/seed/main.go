package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"tasktracker/internal/config"
	"tasktracker/internal/db"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

var (
	email    string
	password string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create accounts in the task tracker database",
	Long:  `Creates users directly in the database configured by DB_DRIVER, MYSQL_DSN and SQLITE_PATH. Migrations run first.`,
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create a user with the ADMIN role",
	RunE: func(cmd *cobra.Command, args []string) error {
		return createUser(cmd, model.RoleAdmin)
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Create a user with the USER role",
	RunE: func(cmd *cobra.Command, args []string) error {
		return createUser(cmd, model.RoleUser)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "account email")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "account password")
	_ = rootCmd.MarkPersistentFlagRequired("email")
	_ = rootCmd.MarkPersistentFlagRequired("password")

	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(userCmd)
}

func createUser(cmd *cobra.Command, role model.Role) error {
	cfg := config.Load()
	service.SetLogLevel(cfg.Level())

	gormDB, err := db.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	log.Println("Database migrations completed")

	users := service.NewUserService(repository.NewStore(gormDB).Users(), nil)

	var user *model.User
	if role == model.RoleAdmin {
		user, err = users.CreateAdmin(cmd.Context(), email, password)
	} else {
		user, err = users.CreateUser(cmd.Context(), email, password)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s id=%d roles=%v\n", user.Email, user.ID, user.RoleNames())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
