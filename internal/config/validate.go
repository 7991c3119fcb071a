package config

import (
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
)

// engineFamilies are the supported Oracle engine identifiers.
var engineFamilies = sets.New(
	"oracle-ee",
	"oracle-se2",
	"oracle-ee-cdb",
	"oracle-se2-cdb",
)

// storageTypes accepted by RDS for Oracle instances.
var storageTypes = sets.New("gp2", "gp3", "io1", "io2")

var kmsKeyARNPattern = regexp.MustCompile(`^arn:aws[a-z-]*:kms:[a-z0-9-]+:\d{12}:key/.+$`)

// MaxSuffixedInstances caps the instance count when per-index identifier
// suffixes apply. The -0<n> convention only defines single-digit indices;
// anything larger is rejected rather than guessed.
const MaxSuffixedInstances = 9

// Validate checks a Deployment before any external call is made. It returns
// every problem found, not just the first one.
func Validate(d *Deployment) []error {
	var errs []error

	errs = append(errs, validateIdentifier(d.Identifier)...)

	if d.InstanceCount < 1 {
		errs = append(errs, fmt.Errorf("instance_count must be at least 1, got %d", d.InstanceCount))
	}
	if (d.InstanceCount > 1 || d.IsReplica()) && d.InstanceCount > MaxSuffixedInstances {
		errs = append(errs, fmt.Errorf("instance_count %d exceeds the %d-instance limit of the -0<n> identifier convention", d.InstanceCount, MaxSuffixedInstances))
	}

	if d.CrossRegion && !d.ReadReplica {
		errs = append(errs, fmt.Errorf("cross_region requires read_replica"))
	}
	if d.IsReplica() && d.SourceDBIdentifier == "" {
		errs = append(errs, fmt.Errorf("source_db_identifier is required for replica deployments"))
	}

	if d.IsReplica() {
		// Replicas inherit these from the source; configuring them here is a
		// sign the config was written for the wrong mode.
		if d.DBName != "" {
			errs = append(errs, fmt.Errorf("db_name must not be set for replica deployments"))
		}
	} else {
		if d.Engine == "" {
			errs = append(errs, fmt.Errorf("engine is required for primary deployments"))
		} else if !engineFamilies.Has(d.Engine) {
			errs = append(errs, fmt.Errorf("unsupported engine %q (supported: %s)", d.Engine, strings.Join(sets.List(engineFamilies), ", ")))
		}
		if d.EngineVersion == "" {
			errs = append(errs, fmt.Errorf("engine_version is required for primary deployments"))
		}
		if d.DBName == "" {
			errs = append(errs, fmt.Errorf("db_name is required for primary deployments"))
		}
		if d.Storage.AllocatedGB < 1 {
			errs = append(errs, fmt.Errorf("storage.allocated_gb must be at least 1"))
		}
		if d.Storage.MaxAllocatedGB != 0 && d.Storage.MaxAllocatedGB < d.Storage.AllocatedGB {
			errs = append(errs, fmt.Errorf("storage.max_allocated_gb %d is below storage.allocated_gb %d", d.Storage.MaxAllocatedGB, d.Storage.AllocatedGB))
		}
		if d.OptionGroupSource == "" {
			errs = append(errs, fmt.Errorf("option_group_source is required for primary deployments"))
		}
	}

	if d.InstanceClass == "" {
		errs = append(errs, fmt.Errorf("instance_class is required"))
	}
	if d.Storage.Type != "" && !storageTypes.Has(d.Storage.Type) {
		errs = append(errs, fmt.Errorf("unsupported storage type %q (supported: %s)", d.Storage.Type, strings.Join(sets.List(storageTypes), ", ")))
	}

	if d.Network.VPCID != "" && !strings.HasPrefix(d.Network.VPCID, "vpc-") {
		errs = append(errs, fmt.Errorf("network.vpc_id %q does not look like a VPC ID", d.Network.VPCID))
	}
	for i, rule := range d.Network.Ingress {
		if rule.CIDR == "" {
			errs = append(errs, fmt.Errorf("network.ingress[%d]: cidr is required", i))
		}
	}

	if d.KMSKeyID != "" && !kmsKeyARNPattern.MatchString(d.KMSKeyID) {
		errs = append(errs, fmt.Errorf("kms_key_id %q is not a KMS key ARN", d.KMSKeyID))
	}

	switch d.Environment {
	case EnvironmentProd, EnvironmentNonProd:
	default:
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", EnvironmentProd, EnvironmentNonProd, d.Environment))
	}

	if d.Password.Length > 0 && d.Password.MinDigits+d.Password.MinSymbols > d.Password.Length {
		errs = append(errs, fmt.Errorf("password character-class minimums exceed password length %d", d.Password.Length))
	}

	return errs
}

// validateIdentifier enforces the RDS instance identifier convention: start
// with a letter, lowercase alphanumerics and hyphens, at most 63 characters,
// no trailing hyphen and no consecutive hyphens.
func validateIdentifier(identifier string) []error {
	var errs []error

	if identifier == "" {
		return []error{fmt.Errorf("identifier is required")}
	}
	for _, msg := range utilvalidation.IsDNS1035Label(identifier) {
		errs = append(errs, fmt.Errorf("identifier %q: %s", identifier, msg))
	}
	if strings.Contains(identifier, "--") {
		errs = append(errs, fmt.Errorf("identifier %q must not contain consecutive hyphens", identifier))
	}
	return errs
}
