// Package secrets generates master credentials and stores them in AWS
// Secrets Manager under the environment-specific path prefix.
package secrets

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-password/password"
	"go.uber.org/zap"

	"github.com/oraplan/oraplan/internal/config"
)

// Path prefixes for stored credentials, keyed by environment.
const (
	ProdPrefix    = "aws-orcl-prod"
	NonProdPrefix = "aws-orcl-nonprod"
)

// Policy constrains generated passwords.
type Policy struct {
	Length     int
	MinDigits  int
	MinSymbols int
}

// PolicyFromConfig lifts the password settings from a deployment.
func PolicyFromConfig(d *config.Deployment) Policy {
	return Policy{
		Length:     d.Password.Length,
		MinDigits:  d.Password.MinDigits,
		MinSymbols: d.Password.MinSymbols,
	}
}

// Payload is the JSON document stored as the secret value.
type Payload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
}

// Generate produces a random password satisfying the policy. Characters may
// repeat; Oracle passwords are long enough that forbidding repeats only
// shrinks the space.
func Generate(p Policy) (string, error) {
	if p.Length <= 0 {
		p.Length = config.DefaultPasswordLength
	}
	if p.MinDigits+p.MinSymbols > p.Length {
		return "", errors.Errorf("password policy impossible: %d digits + %d symbols exceed length %d",
			p.MinDigits, p.MinSymbols, p.Length)
	}

	pw, err := password.Generate(p.Length, p.MinDigits, p.MinSymbols, false, true)
	if err != nil {
		return "", errors.Wrap(err, "generating password")
	}
	return pw, nil
}

// PathFor returns the secret name for an instance address in the given
// environment.
func PathFor(env config.Environment, address string) string {
	prefix := NonProdPrefix
	if env == config.EnvironmentProd {
		prefix = ProdPrefix
	}
	return prefix + "/" + address
}

// API is the slice of the Secrets Manager API the store needs.
type API interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

// Store writes credential payloads to Secrets Manager.
type Store struct {
	client API
	log    *zap.SugaredLogger

	// Overwrite pushes a new version when the secret already exists.
	// Without it an existing secret is an error.
	Overwrite bool
}

// NewStore returns a Store over the given client.
func NewStore(client API, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{client: client, log: log}
}

// NewStoreFromConfig loads the default AWS configuration for region and
// returns a Store over a real Secrets Manager client.
func NewStoreFromConfig(ctx context.Context, region string, log *zap.SugaredLogger) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS configuration")
	}

	return NewStore(secretsmanager.NewFromConfig(cfg), log), nil
}

// Put stores the payload under name. When the secret already exists and
// Overwrite is set, a new version replaces the current one; prior versions
// lose their staging labels and age out.
func (s *Store) Put(ctx context.Context, name string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding secret payload")
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:               aws.String(name),
		SecretString:       aws.String(string(body)),
		ClientRequestToken: aws.String(uuid.NewString()),
	})
	if err == nil {
		s.log.Infow("created secret", "name", name)
		return nil
	}

	var exists *smtypes.ResourceExistsException
	if !errors.As(err, &exists) {
		return errors.Wrapf(err, "creating secret %s", name)
	}
	if !s.Overwrite {
		return errors.Errorf("secret %s already exists; set overwrite_secret to replace it", name)
	}

	_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:           aws.String(name),
		SecretString:       aws.String(string(body)),
		ClientRequestToken: aws.String(uuid.NewString()),
	})
	if err != nil {
		return errors.Wrapf(err, "overwriting secret %s", name)
	}

	s.log.Infow("overwrote secret", "name", name)
	return nil
}
