package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ProjectRakawara/rescue_svc/internal/httpapi"
	"github.com/ProjectRakawara/rescue_svc/internal/mediastore"
	"github.com/ProjectRakawara/rescue_svc/internal/notifications"
	"github.com/ProjectRakawara/rescue_svc/internal/storage"
)

const (
	commandUseName              = "server"
	commandShortDescription     = "Run the rescue post server"
	commandLongDescription      = "Launch the flood rescue request HTTP server"
	missingConfigurationMessage = "missing required configuration"
	loggerCreationErrorMessage  = "logger"
	logEventListening           = "listening"
	logFieldAddress             = "addr"

	environmentKeyApplicationAddress   = "APP_ADDR"
	environmentKeyDatabaseDriver       = "DB_DRIVER"
	environmentKeyDatabaseDataSource   = "DB_DSN"
	environmentKeySpacesAccessKey      = "SPACES_ACCESS_KEY"
	environmentKeySpacesSecretKey      = "SPACES_SECRET_KEY"
	environmentKeySpacesBucket         = "SPACES_BUCKET"
	environmentKeySpacesRegion         = "SPACES_REGION"
	environmentKeySpacesCDNEndpoint    = "SPACES_CDN_ENDPOINT"
	environmentKeySpacesOriginEndpoint = "SPACES_ORIGIN_ENDPOINT"
	environmentKeySpacesUploadPrefix   = "SPACES_UPLOAD_PREFIX"
	environmentKeySpacesMaxFileSizeMB  = "SPACES_MAX_FILE_SIZE_MB"
	environmentKeyAdminAPIToken        = "ADMIN_API_TOKEN"
	environmentKeyTelegramBotToken     = "TELEGRAM_BOT_TOKEN"
	environmentKeyTelegramChannelID    = "TELEGRAM_CHANNEL_ID"

	defaultApplicationAddress = ":8080"
	defaultDatabaseDriver     = storage.DriverNamePostgres
	defaultUploadPrefix       = "posts_images"
	defaultMaxFileSizeMB      = "5"

	originEndpointPattern = "https://%s.%s.digitaloceanspaces.com"

	corsOriginWildcard       = "*"
	corsHeaderContentType    = "Content-Type"
	httpMethodGet            = "GET"
	httpMethodOptions        = "OPTIONS"
	httpMethodPost           = "POST"
	httpMethodDelete         = "DELETE"
	readHeaderTimeoutSeconds = 5

	loggerContextOpenDatabase  = "open_db"
	loggerContextAutoMigrate   = "migrate"
	loggerContextObjectStorage = "object_storage"
	loggerContextNotifier      = "notifier"
	loggerContextServer        = "server"

	unexpectedArgumentsMessage    = "unexpected command arguments"
	commandInitializationFailure  = "failed to configure command"
	flagNotDefinedMessage         = "flag %s not defined"
	environmentConfigurationError = "failed to apply environment configuration"
)

var (
	corsAllowedMethods = []string{httpMethodPost, httpMethodGet, httpMethodDelete, httpMethodOptions}
	corsAllowedHeaders = []string{corsHeaderContentType, httpapi.AdminTokenHeaderName}
	corsExposedHeaders = []string{corsHeaderContentType}
	corsAllowOrigins   = []string{corsOriginWildcard}
)

// configurationBinding ties one environment key to its command flag.
type configurationBinding struct {
	environmentKey string
	flagName       string
	defaultValue   string
	usage          string
}

var configurationBindings = []configurationBinding{
	{environmentKeyApplicationAddress, "app-addr", defaultApplicationAddress, "address for the HTTP server to listen on"},
	{environmentKeyDatabaseDriver, "db-driver", defaultDatabaseDriver, "database driver (postgres or sqlite)"},
	{environmentKeyDatabaseDataSource, "db-dsn", "", "database connection string"},
	{environmentKeySpacesAccessKey, "spaces-access-key", "", "object storage access key"},
	{environmentKeySpacesSecretKey, "spaces-secret-key", "", "object storage secret key"},
	{environmentKeySpacesBucket, "spaces-bucket", "", "object storage bucket name"},
	{environmentKeySpacesRegion, "spaces-region", "", "object storage region"},
	{environmentKeySpacesCDNEndpoint, "spaces-cdn-endpoint", "", "public CDN endpoint for uploaded images"},
	{environmentKeySpacesOriginEndpoint, "spaces-origin-endpoint", "", "object storage origin endpoint (derived from bucket and region when empty)"},
	{environmentKeySpacesUploadPrefix, "spaces-upload-prefix", defaultUploadPrefix, "object key prefix for uploaded images"},
	{environmentKeySpacesMaxFileSizeMB, "spaces-max-file-size-mb", defaultMaxFileSizeMB, "maximum accepted image size in megabytes"},
	{environmentKeyAdminAPIToken, "admin-api-token", "", "static token required for admin API access"},
	{environmentKeyTelegramBotToken, "telegram-bot-token", "", "Telegram bot token for channel notifications"},
	{environmentKeyTelegramChannelID, "telegram-channel-id", "", "Telegram channel id for notifications"},
}

// requiredEnvironmentKeys lists the configuration that aborts startup when absent.
var requiredEnvironmentKeys = []string{
	environmentKeyDatabaseDataSource,
	environmentKeySpacesAccessKey,
	environmentKeySpacesSecretKey,
	environmentKeySpacesBucket,
	environmentKeySpacesRegion,
	environmentKeySpacesCDNEndpoint,
}

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress   string
	DatabaseDriverName   string
	DatabaseDataSource   string
	SpacesAccessKey      string
	SpacesSecretKey      string
	SpacesBucket         string
	SpacesRegion         string
	SpacesCDNEndpoint    string
	SpacesOriginEndpoint string
	SpacesUploadPrefix   string
	SpacesMaxFileSizeMB  int
	AdminAPIToken        string
	TelegramBotToken     string
	TelegramChannelID    string
}

// DatabaseOpener opens a database connection using the provided configuration.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// UploaderFactory creates the object storage uploader.
type UploaderFactory func(mediastore.SpacesConfig) (mediastore.Uploader, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
	uploaderFactory     UploaderFactory
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
		uploaderFactory: func(configuration mediastore.SpacesConfig) (mediastore.Uploader, error) {
			return mediastore.NewSpacesStorage(configuration)
		},
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// WithUploaderFactory overrides the uploader factory dependency.
func (application *ServerApplication) WithUploaderFactory(uploaderFactory UploaderFactory) *ServerApplication {
	application.uploaderFactory = uploaderFactory
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	for _, binding := range configurationBindings {
		application.configurationLoader.SetDefault(binding.environmentKey, binding.defaultValue)
		commandFlags.String(binding.flagName, binding.defaultValue, binding.usage)

		if bindErr := application.bindFlag(commandFlags, binding.environmentKey, binding.flagName); bindErr != nil {
			return bindErr
		}
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, binding.environmentKey, binding.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

func (application *ServerApplication) loadConfiguration() ServerConfig {
	loader := application.configurationLoader
	serverConfig := ServerConfig{
		ApplicationAddress:   strings.TrimSpace(loader.GetString(environmentKeyApplicationAddress)),
		DatabaseDriverName:   strings.TrimSpace(loader.GetString(environmentKeyDatabaseDriver)),
		DatabaseDataSource:   strings.TrimSpace(loader.GetString(environmentKeyDatabaseDataSource)),
		SpacesAccessKey:      strings.TrimSpace(loader.GetString(environmentKeySpacesAccessKey)),
		SpacesSecretKey:      strings.TrimSpace(loader.GetString(environmentKeySpacesSecretKey)),
		SpacesBucket:         strings.TrimSpace(loader.GetString(environmentKeySpacesBucket)),
		SpacesRegion:         strings.TrimSpace(loader.GetString(environmentKeySpacesRegion)),
		SpacesCDNEndpoint:    strings.TrimSpace(loader.GetString(environmentKeySpacesCDNEndpoint)),
		SpacesOriginEndpoint: strings.TrimSpace(loader.GetString(environmentKeySpacesOriginEndpoint)),
		SpacesUploadPrefix:   strings.Trim(strings.TrimSpace(loader.GetString(environmentKeySpacesUploadPrefix)), "/"),
		SpacesMaxFileSizeMB:  loader.GetInt(environmentKeySpacesMaxFileSizeMB),
		AdminAPIToken:        strings.TrimSpace(loader.GetString(environmentKeyAdminAPIToken)),
		TelegramBotToken:     strings.TrimSpace(loader.GetString(environmentKeyTelegramBotToken)),
		TelegramChannelID:    strings.TrimSpace(loader.GetString(environmentKeyTelegramChannelID)),
	}

	if serverConfig.SpacesOriginEndpoint == "" && serverConfig.SpacesBucket != "" && serverConfig.SpacesRegion != "" {
		serverConfig.SpacesOriginEndpoint = fmt.Sprintf(originEndpointPattern, serverConfig.SpacesBucket, serverConfig.SpacesRegion)
	}

	return serverConfig
}

func (application *ServerApplication) ensureRequiredConfiguration(configuration ServerConfig) error {
	configuredValues := map[string]string{
		environmentKeyDatabaseDataSource: configuration.DatabaseDataSource,
		environmentKeySpacesAccessKey:    configuration.SpacesAccessKey,
		environmentKeySpacesSecretKey:    configuration.SpacesSecretKey,
		environmentKeySpacesBucket:       configuration.SpacesBucket,
		environmentKeySpacesRegion:       configuration.SpacesRegion,
		environmentKeySpacesCDNEndpoint:  configuration.SpacesCDNEndpoint,
	}

	var missingParameters []string
	for _, environmentKey := range requiredEnvironmentKeys {
		if configuredValues[environmentKey] == "" {
			missingParameters = append(missingParameters, environmentKey)
		}
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.loadConfiguration()
	if validationErr := application.ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := application.databaseOpener(storage.Config{
		DriverName:     serverConfig.DatabaseDriverName,
		DataSourceName: serverConfig.DatabaseDataSource,
	})
	if databaseErr != nil {
		logger.Fatal(loggerContextOpenDatabase, zap.Error(databaseErr))
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Fatal(loggerContextAutoMigrate, zap.Error(migrateErr))
	}

	uploader, uploaderErr := application.uploaderFactory(mediastore.SpacesConfig{
		AccessKey:      serverConfig.SpacesAccessKey,
		SecretKey:      serverConfig.SpacesSecretKey,
		Bucket:         serverConfig.SpacesBucket,
		Region:         serverConfig.SpacesRegion,
		OriginEndpoint: serverConfig.SpacesOriginEndpoint,
		CDNEndpoint:    serverConfig.SpacesCDNEndpoint,
	})
	if uploaderErr != nil {
		logger.Fatal(loggerContextObjectStorage, zap.Error(uploaderErr))
	}

	var notifier notifications.RescueNotifier
	if serverConfig.TelegramBotToken != "" && serverConfig.TelegramChannelID != "" {
		telegramNotifier, notifierErr := notifications.NewTelegramNotifier(logger, notifications.TelegramConfig{
			BotToken:  serverConfig.TelegramBotToken,
			ChannelID: serverConfig.TelegramChannelID,
		})
		if notifierErr != nil {
			logger.Fatal(loggerContextNotifier, zap.Error(notifierErr))
		}
		notifier = telegramNotifier
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsAllowOrigins,
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	repository := storage.NewPostRepository(database, logger)
	postHandlers := httpapi.NewPostHandlers(repository, uploader, notifier, logger, serverConfig.SpacesMaxFileSizeMB, serverConfig.SpacesUploadPrefix)
	adminHandlers := httpapi.NewAdminHandlers(repository, logger)

	registerRoutes(router, postHandlers, adminHandlers, serverConfig.AdminAPIToken)

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

func main() {
	_ = godotenv.Load()

	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
