// Package config loads and validates the declarative Oracle RDS deployment
// configuration consumed by the resolver.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment selects the secret-store path prefix for generated credentials.
type Environment string

const (
	// EnvironmentProd stores credentials under the aws-orcl-prod prefix.
	EnvironmentProd Environment = "prod"
	// EnvironmentNonProd stores credentials under the aws-orcl-nonprod prefix.
	EnvironmentNonProd Environment = "nonprod"
)

// Deployment is the full configuration bundle for one provisioning run.
// A Deployment is immutable once loaded; any change requires a reload.
type Deployment struct {
	// Identifier is the base DB instance identifier. With multiple instances
	// or a replica it becomes the stem of the per-index identifiers.
	Identifier    string `yaml:"identifier"`
	InstanceCount int    `yaml:"instance_count"`

	// ReadReplica provisions the instances as read replicas of SourceDBIdentifier.
	ReadReplica bool `yaml:"read_replica"`
	// CrossRegion marks the replica as living in a different region than its
	// source. Implies ReadReplica semantics for field inheritance.
	CrossRegion        bool   `yaml:"cross_region"`
	SourceDBIdentifier string `yaml:"source_db_identifier"`

	Engine        string `yaml:"engine"`
	EngineVersion string `yaml:"engine_version"`
	InstanceClass string `yaml:"instance_class"`
	LicenseModel  string `yaml:"license_model"`

	DBName         string `yaml:"db_name"`
	MasterUsername string `yaml:"master_username"`
	Port           int    `yaml:"port"`
	MultiAZ        bool   `yaml:"multi_az"`
	KMSKeyID       string `yaml:"kms_key_id"`

	Storage Storage `yaml:"storage"`
	Network Network `yaml:"network"`

	// OptionGroupSource is the path to the external JSON document holding the
	// parameter-group parameters and option-group options. Relative paths are
	// resolved against the config file's directory.
	OptionGroupSource string `yaml:"option_group_source"`
	// EnableSSLOption selects the SSL option list from the option document.
	EnableSSLOption bool `yaml:"enable_ssl_option"`

	BackupRetentionDays int    `yaml:"backup_retention_days"`
	BackupWindow        string `yaml:"backup_window"`
	MaintenanceWindow   string `yaml:"maintenance_window"`

	SkipFinalSnapshot       bool   `yaml:"skip_final_snapshot"`
	FinalSnapshotIdentifier string `yaml:"final_snapshot_identifier"`

	Environment Environment `yaml:"environment"`
	Password    Password    `yaml:"password"`
	// OverwriteSecret replaces any prior secret versions on credential push.
	OverwriteSecret bool `yaml:"overwrite_secret"`

	Tags map[string]string `yaml:"tags"`
}

// Storage describes the instance storage configuration.
type Storage struct {
	Type           string `yaml:"type"`
	AllocatedGB    int    `yaml:"allocated_gb"`
	MaxAllocatedGB int    `yaml:"max_allocated_gb"`
	IOPS           int    `yaml:"iops"`
}

// Network describes VPC placement and security group ingress.
type Network struct {
	VPCID   string        `yaml:"vpc_id"`
	Ingress []IngressRule `yaml:"ingress"`
}

// IngressRule is one security group ingress entry. Unset fields default to
// the Oracle listener port and tcp.
type IngressRule struct {
	Description string `yaml:"description"`
	CIDR        string `yaml:"cidr"`
	FromPort    int    `yaml:"from_port"`
	ToPort      int    `yaml:"to_port"`
	Protocol    string `yaml:"protocol"`
}

// Password configures generated master credentials.
type Password struct {
	Length     int `yaml:"length"`
	MinDigits  int `yaml:"min_digits"`
	MinSymbols int `yaml:"min_symbols"`
}

// Defaults applied by Load when the corresponding field is unset.
const (
	DefaultPort           = 1521
	DefaultPasswordLength = 30
	DefaultMinDigits      = 2
	DefaultMinSymbols     = 2
)

// Load reads a Deployment from a YAML file. Unknown fields are rejected so a
// typo in a field name fails loudly instead of silently defaulting.
func Load(path string) (*Deployment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var d Deployment
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyDefaults(&d)
	return &d, nil
}

func applyDefaults(d *Deployment) {
	if d.InstanceCount == 0 {
		d.InstanceCount = 1
	}
	if d.Port == 0 {
		d.Port = DefaultPort
	}
	if d.Environment == "" {
		d.Environment = EnvironmentNonProd
	}
	if d.Password.Length == 0 {
		d.Password.Length = DefaultPasswordLength
	}
	if d.Password.MinDigits == 0 {
		d.Password.MinDigits = DefaultMinDigits
	}
	if d.Password.MinSymbols == 0 {
		d.Password.MinSymbols = DefaultMinSymbols
	}
	if d.MasterUsername == "" {
		d.MasterUsername = "dbadmin"
	}
}

// IsReplica reports whether the deployment provisions replicas of an
// existing source instead of standalone primaries.
func (d *Deployment) IsReplica() bool {
	return d.ReadReplica || d.CrossRegion
}
