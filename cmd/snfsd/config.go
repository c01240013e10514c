package main

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	pz "github.com/weberc2/httpeasy"
	"github.com/weberc2/snfs/pkg/backup"
	"github.com/weberc2/snfs/pkg/image"
	"github.com/weberc2/snfs/pkg/objectstore"
	"github.com/weberc2/snfs/pkg/server"
	"github.com/weberc2/snfs/pkg/snfs"
	. "github.com/weberc2/snfs/pkg/types"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "SNFS"
	appName      = "snfs"
)

type Config struct {
	Addr      string        `envconfig:"SNFS_ADDR"       yaml:"addr"`
	Backend   image.Backend `envconfig:"SNFS_BACKEND"    yaml:"backend"`
	Image     string        `envconfig:"SNFS_IMAGE"      yaml:"image"`
	Blocks    Block         `envconfig:"SNFS_BLOCKS"     yaml:"blocks"`
	CacheSize int           `envconfig:"SNFS_CACHE_SIZE" yaml:"cacheSize"`
	DiskDelay time.Duration `envconfig:"SNFS_DISK_DELAY" yaml:"diskDelay"`
	Format    bool          `envconfig:"SNFS_FORMAT"     yaml:"format"`
	Bucket    string        `envconfig:"SNFS_BUCKET"     yaml:"bucket"`
	Name      string        `envconfig:"SNFS_NAME"       yaml:"name"`
	LogLevel  string        `envconfig:"SNFS_LOG_LEVEL"  yaml:"logLevel"`
}

// defaultConfig is applied before the config file and the environment, so
// either may override any field.
var defaultConfig = Config{
	Addr:      "127.0.0.1:8080",
	Backend:   image.BackendFile,
	Blocks:    DefaultBlockCount,
	CacheSize: 64,
	Name:      appName,
	LogLevel:  "info",
}

func LoadConfig() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating config file: %w", err)
		}
		configFile = filepath.Join(home, ".config", appName+".yaml")
	}

	c := defaultConfig
	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.Addr == "" {
			return "addr", "ADDR"
		}
		if c.Backend == "" {
			return "backend", "BACKEND"
		}
		if c.Backend != image.BackendMemory && c.Image == "" {
			return "image", "IMAGE"
		}
		if c.Blocks == 0 {
			return "blocks", "BLOCKS"
		}
		if c.Bucket != "" && c.Name == "" {
			return "name", "NAME"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}
	return nil
}

// configureLogging switches `logger` to JSON output at `level`.
func configureLogging(logger *logrus.Logger, level string) error {
	logger.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(lvl)
	return nil
}

func (c *Config) Run() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := configureLogging(logrus.StandardLogger(), c.LogLevel); err != nil {
		return err
	}

	img, err := image.Open(image.Options{
		Backend:   c.Backend,
		Path:      c.Image,
		Blocks:    c.Blocks,
		CacheSize: c.CacheSize,
		Delay:     c.DiskDelay,
	})
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer func() {
		if err := img.Close(); err != nil {
			logrus.WithError(err).Error("closing image")
		}
	}()

	fs, err := c.fileSystem(img)
	if err != nil {
		return err
	}

	s := server.Server{FileSystem: fs, Image: c.Name}
	if c.Bucket != "" {
		sess, err := session.NewSession()
		if err != nil {
			return fmt.Errorf("creating aws session: %w", err)
		}
		s.Backups = backup.NewStore(
			objectstore.NewS3ObjectStore(sess),
			c.Bucket,
		)
	}

	logrus.WithFields(logrus.Fields{
		"addr":    c.Addr,
		"backend": c.Backend,
		"image":   c.Image,
		"blocks":  img.Device.BlockCount(),
	}).Info("listening")
	return http.ListenAndServe(
		c.Addr,
		pz.Register(pz.JSONLog(os.Stderr), s.Routes()...),
	)
}

// fileSystem formats the image when it is new or when asked to, and opens it
// otherwise.
func (c *Config) fileSystem(img *image.Image) (*snfs.FileSystem, error) {
	if c.Format || img.Fresh {
		logrus.WithField("image", c.Image).Info("formatting image")
		fs, err := snfs.Format(img.Device)
		if err != nil {
			return nil, fmt.Errorf("formatting image: %w", err)
		}
		return fs, nil
	}

	fs, err := snfs.Open(img.Device)
	if err != nil {
		return nil, fmt.Errorf("opening file system: %w", err)
	}
	return fs, nil
}
