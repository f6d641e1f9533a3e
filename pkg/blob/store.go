// Package blob stores the mirror's artifacts in S3-compatible object
// storage.
package blob

// Config holds the settings for connecting to an S3-compatible store.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Store is the object-store surface the mirror needs. Implementations
// report found == false for keys that don't exist, reserving errors for
// actual transport or service failures.
type Store interface {
	Get(key string) (data []byte, found bool, err error)
	Put(key string, data []byte, contentType string) error
	List(prefix string) ([]string, error)
}
