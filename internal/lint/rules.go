package lint

import (
	"fmt"

	"github.com/oraplan/oraplan/internal/config"
)

// minRecommendedRetention is the backup retention floor below which ORP003
// fires for primary deployments.
const minRecommendedRetention = 7

// maxIdentifierLength is the RDS instance identifier limit. Suffixed
// identifiers add three characters on top of the base.
const (
	maxIdentifierLength = 63
	suffixLength        = 3
)

// OpenIngress flags ingress rules that admit the whole internet.
type OpenIngress struct{}

func (r OpenIngress) ID() string { return "ORP001" }
func (r OpenIngress) Description() string {
	return "Ingress rule open to the world"
}

func (r OpenIngress) Check(d *config.Deployment) []Issue {
	var issues []Issue
	for i, rule := range d.Network.Ingress {
		if rule.CIDR == "0.0.0.0/0" || rule.CIDR == "::/0" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("ingress[%d] admits all of %s; restrict to known client ranges", i, rule.CIDR),
				Rule:     r.ID(),
			})
		}
	}
	return issues
}

// SkippedFinalSnapshot flags deployments that will delete without a final
// snapshot.
type SkippedFinalSnapshot struct{}

func (r SkippedFinalSnapshot) ID() string { return "ORP002" }
func (r SkippedFinalSnapshot) Description() string {
	return "Final snapshot skipped"
}

func (r SkippedFinalSnapshot) Check(d *config.Deployment) []Issue {
	if !d.SkipFinalSnapshot || d.IsReplica() {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Message:  "skip_final_snapshot is set; instance deletion will discard the last state",
		Rule:     r.ID(),
	}}
}

// ShortBackupRetention flags primaries with a retention window below the
// recommended floor.
type ShortBackupRetention struct{}

func (r ShortBackupRetention) ID() string { return "ORP003" }
func (r ShortBackupRetention) Description() string {
	return "Short backup retention"
}

func (r ShortBackupRetention) Check(d *config.Deployment) []Issue {
	if d.IsReplica() || d.BackupRetentionDays >= minRecommendedRetention {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("backup_retention_days %d is below the recommended %d", d.BackupRetentionDays, minRecommendedRetention),
		Rule:     r.ID(),
	}}
}

// NoStorageAutoscaling flags primaries without a storage ceiling.
type NoStorageAutoscaling struct{}

func (r NoStorageAutoscaling) ID() string { return "ORP004" }
func (r NoStorageAutoscaling) Description() string {
	return "Storage autoscaling disabled"
}

func (r NoStorageAutoscaling) Check(d *config.Deployment) []Issue {
	if d.IsReplica() || d.Storage.MaxAllocatedGB != 0 {
		return nil
	}
	return []Issue{{
		Severity: SeverityInfo,
		Message:  "storage.max_allocated_gb is unset; the instance cannot grow storage automatically",
		Rule:     r.ID(),
	}}
}

// UndescribedIngress flags ingress rules without a description.
type UndescribedIngress struct{}

func (r UndescribedIngress) ID() string { return "ORP005" }
func (r UndescribedIngress) Description() string {
	return "Ingress rule without a description"
}

func (r UndescribedIngress) Check(d *config.Deployment) []Issue {
	var issues []Issue
	for i, rule := range d.Network.Ingress {
		if rule.Description == "" {
			issues = append(issues, Issue{
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("ingress[%d] (%s) has no description", i, rule.CIDR),
				Rule:     r.ID(),
			})
		}
	}
	return issues
}

// ProdWithoutMultiAZ flags production primaries running single-AZ.
type ProdWithoutMultiAZ struct{}

func (r ProdWithoutMultiAZ) ID() string { return "ORP006" }
func (r ProdWithoutMultiAZ) Description() string {
	return "Production deployment without Multi-AZ"
}

func (r ProdWithoutMultiAZ) Check(d *config.Deployment) []Issue {
	if d.Environment != config.EnvironmentProd || d.MultiAZ || d.IsReplica() {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Message:  "production deployment is single-AZ; consider multi_az: true",
		Rule:     r.ID(),
	}}
}

// TightIdentifier flags base identifiers that overflow the length limit once
// the -0<n> index suffix is appended.
type TightIdentifier struct{}

func (r TightIdentifier) ID() string { return "ORP007" }
func (r TightIdentifier) Description() string {
	return "Identifier leaves no room for the index suffix"
}

func (r TightIdentifier) Check(d *config.Deployment) []Issue {
	if d.InstanceCount <= 1 && !d.IsReplica() {
		return nil
	}
	if len(d.Identifier)+suffixLength <= maxIdentifierLength {
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Message: fmt.Sprintf("identifier %q is %d characters; suffixed instance identifiers exceed the %d-character limit",
			d.Identifier, len(d.Identifier), maxIdentifierLength),
		Rule: r.ID(),
	}}
}
