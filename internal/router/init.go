package router

import (
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/container"
	handlers "github.com/oksasatya/go-ddd-auth-scaffold/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/router/modules"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
	tpl "github.com/oksasatya/go-ddd-auth-scaffold/pkg/mailer/templates"
)

type ModuleDeps struct {
	Service *application.Service
	Auth    *handlers.AuthHandler
	Profile *handlers.ProfileHandler
	Admin   *handlers.AdminHandler
}

// BuildService assembles the account service from the container singletons.
func BuildService() *application.Service {
	cfg := container.GetConfig()
	svc := application.NewService(
		container.GetUserManager(),
		container.GetRoleManager(),
		container.GetJWT(),
		container.GetRedis(),
		container.GetLogger(),
		container.GetMailSender(),
	)
	svc.SessionTTL = cfg.SessionTTL
	svc.Links = application.Links{
		Brand: tpl.Brand{
			AppName:     cfg.AppName,
			CompanyName: cfg.CompanyName,
			SupportURL:  cfg.SupportURL,
		},
		ConfirmEmailURL:  cfg.ConfirmEmailURL,
		ResetPasswordURL: cfg.ResetPasswordURL,
	}
	svc.GCS, svc.GCSBucket = container.GetGCS(), cfg.GCSBucket
	svc.ES, svc.ESUsersIndex = container.GetES(), cfg.ESUsersIndex
	return svc
}

func buildDeps() ModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	svc := BuildService()
	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)

	return ModuleDeps{
		Service: svc,
		Auth:    handlers.NewAuthHandler(svc, logger, cookies),
		Profile: handlers.NewProfileHandler(svc, logger),
		Admin:   handlers.NewAdminHandler(svc, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup, after the container is filled.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	deps := buildDeps()
	jwt := container.GetJWT()

	r.Add(modules.NewAuthModule(deps.Auth, jwt))
	r.Add(modules.NewProfileModule(deps.Profile, jwt))
	r.Add(modules.NewAdminModule(deps.Admin, jwt, cfg.SeedDefaultRole))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
