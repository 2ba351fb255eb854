package main

import (
	"fmt"

	"docctl-server/internal/domain"
	"docctl-server/internal/repository"
	"docctl-server/internal/service"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	newUsername string
	newEmail    string
	newFullName string
	newPassword string
	newRoles    []string
)

// userCmd groups account administration
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

// userCreateCmd provisions an account directly in CouchDB. This is how the
// first manager gets created.
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&newUsername, "username", "", "Login name")
	userCreateCmd.Flags().StringVar(&newEmail, "email", "", "Email address")
	userCreateCmd.Flags().StringVar(&newFullName, "full-name", "", "Name written on claim records")
	userCreateCmd.Flags().StringVar(&newPassword, "password", "", "Initial password")
	userCreateCmd.Flags().StringSliceVar(&newRoles, "role", []string{domain.RoleClaimant}, "Role(s): manager, claimant")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	req := &domain.CreateUserRequest{
		Username: newUsername,
		Email:    newEmail,
		FullName: newFullName,
		Password: newPassword,
		Roles:    newRoles,
	}
	for _, role := range req.Roles {
		if role != domain.RoleManager && role != domain.RoleClaimant {
			return fmt.Errorf("unknown role %q", role)
		}
	}

	ctx := cmd.Context()
	client, err := kivik.New("couch", cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("connect to CouchDB: %w", err)
	}
	defer client.Close()

	exists, err := client.DBExists(ctx, cfg.Database.Name)
	if err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, cfg.Database.Name); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
	}

	users := service.NewUserService(repository.NewUserRepository(client, cfg.Database.Name))
	user, err := users.Create(ctx, req)
	if err != nil {
		return err
	}

	logger.Info("user created", zap.String("id", user.ID), zap.Strings("roles", user.Roles))
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Username, user.ID)
	return nil
}
