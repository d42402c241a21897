package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
	orgName       string
	orgSlug       string
)

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "login email of the new super admin")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "initial password (min 8 characters)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "full name")
	createAdminCmd.Flags().StringVar(&orgName, "org", "", "name of the organization to create")
	createAdminCmd.Flags().StringVar(&orgSlug, "slug", "", "organization slug (derived from --org when empty)")

	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
	_ = createAdminCmd.MarkFlagRequired("org")
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an organization and its first super admin",
	Long: `Create an organization together with a super_admin account.

Examples:
  mesophy create-admin --org "Acme Coffee" --email admin@acme.test --password s3cretpass`,
	RunE: runCreateAdmin,
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	if len(adminPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	_, closer, err := bootstrap()
	if err != nil {
		return err
	}
	defer closer.Close()
	defer db.DB.Close()

	store := db.NewStore(db.DB)

	slug := orgSlug
	if slug == "" {
		slug = slugify(orgName)
	}
	org, err := store.CreateOrganization(orgName, slug)
	if err != nil {
		return err
	}

	hashed, err := middleware.HashPassword(adminPassword)
	if err != nil {
		return err
	}
	var fullName *string
	if adminName != "" {
		fullName = &adminName
	}
	user, err := store.CreateUser(model.User{
		Email:          strings.ToLower(strings.TrimSpace(adminEmail)),
		HashedPassword: hashed,
		FullName:       fullName,
		Role:           model.RoleSuperAdmin,
		OrganizationID: org.ID,
		IsActive:       true,
	})
	if err != nil {
		return err
	}

	log.Info().Str("organization_id", org.ID).Str("user_id", user.ID).Str("email", user.Email).
		Msg("super admin created")
	fmt.Fprintf(cmd.OutOrStdout(), "organization %s\nuser %s\n", org.ID, user.ID)
	return nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
