package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dmitrymomot/gatehouse/pkg/credential"
	"github.com/dmitrymomot/gatehouse/pkg/db"
	"github.com/dmitrymomot/gatehouse/pkg/password"
)

// openUsers opens a SQLite users file, creating the table when missing.
func openUsers(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open users %s: %w", path, err)
	}
	if err := gdb.AutoMigrate(&credential.User{}); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate users %s", path), err)
	}
	return gdb, nil
}

func closeGORM(gdb *gorm.DB) func(context.Context) error {
	return func(context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}

func newUserCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCmd(root))
	return cmd
}

func newUserAddCmd(root *rootOptions) *cobra.Command {
	var email, secret string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user; the password is read from --password or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if secret == "" {
				if secret, err = readSecret(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			hash, err := password.NewHasher().Hash(secret)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			user := &credential.User{Username: args[0], Email: email, PasswordHash: hash}

			if cfg.DB.Enabled() {
				pool, err := db.Connect(ctx, cfg.DB)
				if err != nil {
					return err
				}
				defer func() { _ = db.Shutdown(pool)(context.Background()) }()
				if err := db.Migrate(ctx, pool, cfg.DB.MigrationsTable, nil); err != nil {
					return err
				}
				_, err = pool.Exec(ctx,
					`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)`,
					user.Username, user.Email, user.PasswordHash,
				)
				if err != nil {
					return fmt.Errorf("create user %s: %w", user.Username, err)
				}
			} else {
				if cfg.Auth.UsersSQLite == "" {
					return ErrNoUserStore
				}
				gdb, err := openUsers(cfg.Auth.UsersSQLite)
				if err != nil {
					return err
				}
				defer func() { _ = closeGORM(gdb)(context.Background()) }()
				if err := gdb.WithContext(ctx).Create(user).Error; err != nil {
					return fmt.Errorf("create user %s: %w", user.Username, err)
				}
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", user.Username)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address, also accepted as a login identifier")
	cmd.Flags().StringVar(&secret, "password", "", "password; read from stdin when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
