package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DatabaseMySQL = "mysql"
	DatabaseMongo = "mongo"
)

const (
	MailProviderSendGrid = "sendgrid"
	MailProviderLog      = "log"
)

const MimeImage = "image/"

// 缩略图存放目录
const ThumbnailFolder = "courses"
