package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/openaerialmap/oam-mirror/pkg/blob"
	"github.com/openaerialmap/oam-mirror/pkg/errors"
)

const (
	// UserConfigPath is the default path to the oam-mirror config.
	UserConfigPath = "~/.oam-mirror.yaml"

	// InitialConfigVersion is the first version of the oam-mirror config.
	// Config files that do not specify a version will default to this
	// version.
	InitialConfigVersion = "v1alpha1"

	// SupportedConfigVersion is the config version supported by the
	// current oam-mirror binary.
	SupportedConfigVersion = "v1alpha1"

	// DefaultAPIURL is the production OpenAerialMap API.
	DefaultAPIURL = "https://api.openaerialmap.org"

	// DefaultRegion matches the region the OpenAerialMap buckets live in.
	DefaultRegion = "us-east-1"

	// DefaultDatabase is the MongoDB database the OpenAerialMap API
	// writes to.
	DefaultDatabase = "oam-api-production"
)

// Environment variable names honored for compatibility with the original
// cron deployment, which was configured entirely through the environment.
const (
	apiEnvKey      = "OAM_API_URL"
	bucketEnvKey   = "AWS_BUCKET_NAME"
	regionEnvKey   = "AWS_REGION"
	endpointEnvKey = "S3_ENDPOINT_URL"
	databaseEnvKey = "MONGODB_DATABASE"

	accessKeyEnvKey = "AWS_ACCESS_KEY_ID"
	secretKeyEnvKey = "AWS_SECRET_ACCESS_KEY"
	mongoURIEnvKey  = "MONGODB_URI"
)

// parseConfigErrTemplate is a template for when the CLI fails to parse yaml
// configuration files. This can happen for a multitude of reasons, including
// extraneous fields and incorrect field types. However, the yaml library
// constructs errors in a way that loses context, and so we can only pass the
// error message on.
const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

// Mirror is the oam-mirror configuration file format. Each field falls back
// to its environment variable, then to its default, so a config file is
// optional. Credentials (AWS keys, the MongoDB URI) are never read from the
// file.
type Mirror struct {
	Version  string `json:"version,omitempty"`
	API      string `json:"api,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Database string `json:"database,omitempty"`
}

func (m Mirror) getVersion() string {
	return m.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// Parse loads the mirror configuration from the given path. An empty path
// means the default location, and in that case a missing file is fine: the
// configuration is then resolved from the environment alone.
func Parse(path string) (Mirror, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = homedirExpand(UserConfigPath)
		if err != nil {
			return Mirror{}, errors.WithContext(err, "expand config path")
		}
	}

	config := Mirror{Version: InitialConfigVersion}
	if err := parseConfig(path, &config, SupportedConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			if explicit {
				return Mirror{}, errors.NewFriendlyError(
					"The config file doesn't exist at %q.", path)
			}
			log.WithField("path", path).
				Debug("No config file, resolving settings from the environment")
		} else {
			return Mirror{}, errors.WithContext(err, "parse")
		}
	}

	config.applyEnvironment()
	return config, nil
}

func (m *Mirror) applyEnvironment() {
	fallback(&m.API, apiEnvKey, DefaultAPIURL)
	fallback(&m.Bucket, bucketEnvKey, "")
	fallback(&m.Region, regionEnvKey, DefaultRegion)
	fallback(&m.Endpoint, endpointEnvKey, "")
	fallback(&m.Database, databaseEnvKey, DefaultDatabase)
}

func fallback(field *string, envKey, def string) {
	if *field != "" {
		return
	}
	if env := os.Getenv(envKey); env != "" {
		*field = env
		return
	}
	*field = def
}

// BlobConfig assembles the object-store settings, pulling credentials from
// the environment. All storage-backed commands require these settings, so a
// missing one is reported with the full list of what's absent.
func (m Mirror) BlobConfig() (blob.Config, error) {
	accessKey := os.Getenv(accessKeyEnvKey)
	secretKey := os.Getenv(secretKeyEnvKey)

	var missing []string
	if m.Bucket == "" {
		missing = append(missing, bucketEnvKey)
	}
	if accessKey == "" {
		missing = append(missing, accessKeyEnvKey)
	}
	if secretKey == "" {
		missing = append(missing, secretKeyEnvKey)
	}
	if len(missing) > 0 {
		return blob.Config{}, errors.NewFriendlyError(
			"Missing required settings: %s.\n"+
				"Set them in the environment, or set the non-secret ones in %s.",
			strings.Join(missing, ", "), UserConfigPath)
	}

	return blob.Config{
		Bucket:    m.Bucket,
		Region:    m.Region,
		Endpoint:  m.Endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}, nil
}

// MongoURI returns the MongoDB connection string for the stats pipeline.
// It's a credential, so it can only come from the environment.
func (m Mirror) MongoURI() (string, error) {
	uri := os.Getenv(mongoURIEnvKey)
	if uri == "" {
		return "", errors.NewFriendlyError(
			"%s must be set to run the stats pipeline.", mongoURIEnvKey)
	}
	return uri, nil
}

type configInterface interface {
	getVersion() string
}

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The configuration file %q is incompatible "+
		"with this version of oam-mirror.\n"+
		"Expected version %q, but got %q.", err.path, err.exp, err.actual)
}

func parseConfig(path string, config configInterface, expVersion string) error {
	configBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: path}
		}
		return errors.WithContext(err, "read file")
	}

	err = yaml.Unmarshal(configBytes, config)
	if err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	if config.getVersion() != expVersion {
		return incompatibleVersionError{path, expVersion, config.getVersion()}
	}

	// Do a strict unmarshal to check for any extra fields. We do a non-strict
	// unmarshal first so that we can catch version errors before erroring on
	// extra fields.
	err = yaml.UnmarshalStrict(configBytes, config, yaml.DisallowUnknownFields)
	if err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}
	return nil
}
