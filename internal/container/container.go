package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/config"
	"github.com/enxergar/outreach/pkg/helpers"
	"github.com/enxergar/outreach/pkg/mailer"
)

// Process-wide singletons set by the binaries at startup. Router modules and
// the scheduler build their services from these.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client

	jwtManager *helpers.JWTManager

	mailgunClient *mailer.Mailgun
	twilioClient  *helpers.TwilioClient
	emailQueue    *helpers.EmailQueue
	esClient      *elasticsearch.Client
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger {
	if logger == nil {
		return helpers.NewNopLogger()
	}
	return logger
}
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager {
	if jwtManager != nil {
		return jwtManager
	}
	return helpers.DefaultJWT()
}

func SetMailgun(m *mailer.Mailgun)        { mailgunClient = m }
func GetMailgun() *mailer.Mailgun         { return mailgunClient }
func SetTwilio(t *helpers.TwilioClient)   { twilioClient = t }
func GetTwilio() *helpers.TwilioClient    { return twilioClient }
func SetEmailQueue(q *helpers.EmailQueue) { emailQueue = q }
func GetEmailQueue() *helpers.EmailQueue  { return emailQueue }
func SetES(c *elasticsearch.Client)       { esClient = c }
func GetES() *elasticsearch.Client        { return esClient }
