package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/config"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/mailer"
)

// app-level container to share constructed components across packages.
// main fills it once at startup; the router auto-wires modules from it.
// Optional clients (GCS, Elasticsearch, RabbitMQ) stay nil when not configured.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	gcsClient   *storage.Client
	esClient    *elasticsearch.Client
	rabbitPub   *helpers.RabbitPublisher

	jwtManager  *helpers.JWTManager
	mailSender  mailer.Sender
	roleManager *application.RoleManager
	userManager *application.UserManager
)

func SetConfig(c *config.Config)    { cfg = c }
func GetConfig() *config.Config     { return cfg }
func SetLogger(l *logrus.Logger)    { logger = l }
func GetLogger() *logrus.Logger     { return logger }
func SetRedis(r *redis.Client)      { redisClient = r }
func GetRedis() *redis.Client       { return redisClient }
func SetGCS(s *storage.Client)      { gcsClient = s }
func GetGCS() *storage.Client       { return gcsClient }
func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }
func SetJWT(m *helpers.JWTManager)  { jwtManager = m }
func GetJWT() *helpers.JWTManager   { return jwtManager }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }

// SetMailSender picks the delivery path for account emails.
func SetMailSender(s mailer.Sender) { mailSender = s }

// GetMailSender falls back to a NoOpSender so callers never see nil.
func GetMailSender() mailer.Sender {
	if mailSender != nil {
		return mailSender
	}
	return mailer.NoOpSender{Logger: logger}
}

// SetIdentity registers the identity managers shared by the seeder and the HTTP layer.
func SetIdentity(roles *application.RoleManager, users *application.UserManager) {
	roleManager, userManager = roles, users
}

func GetRoleManager() *application.RoleManager { return roleManager }
func GetUserManager() *application.UserManager { return userManager }
