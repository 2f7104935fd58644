package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

// Config carries every setting of a migration run. It is assembled
// once at startup and never mutated afterwards.
type Config struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	IAMRole     string `json:"iam_role"`
	DBUser      string `json:"db_user"`
	DBName      string `json:"db_name"`
	Bucket      string `json:"s3_bucket"`
	Region      string `json:"region"`
	Concurrency int    `json:"concurrency"`

	// PollTimeout bounds the wait for a single statement. Flag-only.
	PollTimeout time.Duration `json:"-"`
}

// Load loads the configuration from configuration file path.
func Load(path string, out interface{}) error {
	var err error

	f, err := os.Open(path)
	if f != nil {
		defer func() {
			ferr := f.Close()
			if ferr != nil {
				log.Println(ferr)
			}
		}()
	}

	if err != nil {
		return err
	}

	dec := json.NewDecoder(f)
	err = dec.Decode(out)
	if err != nil {
		return err
	}

	return err
}

// Validate reports the first missing required setting. It runs before
// any remote call is made.
func (c Config) Validate() error {
	required := []struct {
		flag  string
		value string
	}{
		{"source", c.Source},
		{"destination", c.Destination},
		{"iam-role", c.IAMRole},
		{"db-user", c.DBUser},
		{"db-name", c.DBName},
		{"s3-bucket", c.Bucket},
	}

	for _, setting := range required {
		if setting.value == "" {
			return fmt.Errorf("missing required setting --%s", setting.flag)
		}
	}

	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}

	return nil
}
