package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Auth
	JWTSecret     string `envconfig:"JWT_SECRET"`
	TokenTTLHours uint   `envconfig:"TOKEN_TTL_HOURS" default:"72"`
	BcryptCost    int    `envconfig:"BCRYPT_COST" default:"10"`

	// File storage. Driver is either "disk" or "s3". StorageRoot is the shared
	// root every stored file path is resolved against; for s3 it becomes the
	// key prefix inside the bucket.
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"disk"`
	StorageRoot   string `envconfig:"STORAGE_ROOT" default:"./public"`
	S3Bucket      string `envconfig:"S3_BUCKET"`

	// Mail
	MailHost     string `envconfig:"MAIL_HOST"`
	MailPort     int    `envconfig:"MAIL_PORT" default:"587"`
	MailUsername string `envconfig:"MAIL_USERNAME"`
	MailPassword string `envconfig:"MAIL_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"noreply@communityhub.local"`

	FrontEndURL string `envconfig:"FRONT_END_URL" default:"http://localhost:3001"`
}
