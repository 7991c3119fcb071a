// Package resolve derives the instance topology for a deployment: per-index
// identifiers, mode-conditional field selection, security rule expansion, and
// the tag set every resource carries.
//
// Resolution is a single synchronous pass over an already-validated
// configuration. The output is immutable; a config change requires a fresh
// Resolve call.
package resolve

import (
	"fmt"

	"github.com/oraplan/oraplan/internal/config"
)

// Mode is the deployment topology variant. Exactly one mode is active per
// instance; the per-mode field sets are mutually exclusive.
type Mode string

const (
	// ModePrimary is a standalone, fully configured instance.
	ModePrimary Mode = "primary"
	// ModeReadReplica mirrors a same-region source; engine, storage, and
	// credentials are inherited from it.
	ModeReadReplica Mode = "read-replica"
	// ModeCrossRegion is a replica in another region. Unlike a same-region
	// replica it carries its own storage, subnet group, and backup settings.
	ModeCrossRegion Mode = "cross-region"
)

// ModeOf returns the topology mode for a deployment.
func ModeOf(d *config.Deployment) Mode {
	switch {
	case d.CrossRegion:
		return ModeCrossRegion
	case d.ReadReplica:
		return ModeReadReplica
	default:
		return ModePrimary
	}
}

// logExports are the Oracle log streams that get a CloudWatch log group per
// instance.
var logExports = []string{"alert", "audit", "listener", "trace"}

// InstancePlan is the resolved specification for one database instance.
// Pointer fields are nil when the active mode inherits the value from the
// replica source; they are never set to an empty value instead.
type InstancePlan struct {
	Identifier string
	Mode       Mode

	InstanceClass string
	Port          int
	MultiAZ       bool
	KMSKeyID      *string

	Engine        *string
	EngineVersion *string
	LicenseModel  *string

	AllocatedStorage    *int
	MaxAllocatedStorage *int
	IOPS                *int
	StorageType         *string

	DBName         *string
	MasterUsername *string

	OptionGroupName    *string
	ParameterGroupName *string
	SubnetGroupName    *string

	BackupRetentionDays *int
	BackupWindow        *string
	MaintenanceWindow   *string

	SourceDBInstanceIdentifier *string

	FinalSnapshotIdentifier *string

	LogGroups []string
	Tags      map[string]string
}

// SecurityRule is one expanded security group rule.
type SecurityRule struct {
	Description string
	CIDR        string
	FromPort    int
	ToPort      int
	Protocol    string
}

// SecurityGroupPlan is the resolved security group with its expanded rules.
type SecurityGroupPlan struct {
	Name    string
	VPCID   string
	Ingress []SecurityRule
	Egress  []SecurityRule
}

// Topology is the full resolved deployment.
type Topology struct {
	Mode      Mode
	Instances []InstancePlan

	SecurityGroup SecurityGroupPlan

	// Group names are empty when the mode does not own the group.
	OptionGroupName    string
	ParameterGroupName string
	SubnetGroupName    string

	Tags map[string]string
}

// InstanceIdentifier derives the resource identifier for one instance. When
// the deployment has multiple instances or is a replica, the identifier gets
// a -0<n> suffix (n = index+1). The convention only defines single-digit
// indices; larger indices are an error, not a guess.
func InstanceIdentifier(base string, index, count int, replica bool) (string, error) {
	if count <= 1 && !replica {
		return base, nil
	}
	n := index + 1
	if n > config.MaxSuffixedInstances {
		return "", fmt.Errorf("instance index %d exceeds the -0<n> suffix convention", n)
	}
	return fmt.Sprintf("%s-0%d", base, n), nil
}

// Resolve derives the full topology for a validated deployment. The
// mandatory tag mapping is merged into every resource's tags and wins over
// local tags on key collision.
func Resolve(d *config.Deployment, mandatoryTags map[string]string) (*Topology, error) {
	mode := ModeOf(d)
	tags := MergeTags(d.Tags, mandatoryTags)

	topo := &Topology{
		Mode: mode,
		Tags: tags,
		SecurityGroup: SecurityGroupPlan{
			Name:    d.Identifier + "-sg",
			VPCID:   d.Network.VPCID,
			Ingress: ExpandIngress(d.Network.Ingress),
			Egress:  []SecurityRule{allowAllEgress()},
		},
	}

	if mode == ModePrimary {
		topo.OptionGroupName = d.Identifier + "-og"
		topo.ParameterGroupName = d.Identifier + "-pg"
	}
	if mode == ModePrimary || mode == ModeCrossRegion {
		topo.SubnetGroupName = d.Identifier + "-sng"
	}

	for i := 0; i < d.InstanceCount; i++ {
		identifier, err := InstanceIdentifier(d.Identifier, i, d.InstanceCount, d.IsReplica())
		if err != nil {
			return nil, err
		}
		topo.Instances = append(topo.Instances, resolveInstance(d, topo, mode, identifier))
	}

	return topo, nil
}

func resolveInstance(d *config.Deployment, topo *Topology, mode Mode, identifier string) InstancePlan {
	inst := InstancePlan{
		Identifier:    identifier,
		Mode:          mode,
		InstanceClass: d.InstanceClass,
		Port:          d.Port,
		MultiAZ:       d.MultiAZ,
		Tags:          topo.Tags,
	}
	if d.KMSKeyID != "" {
		inst.KMSKeyID = ptr(d.KMSKeyID)
	}

	for _, export := range logExports {
		inst.LogGroups = append(inst.LogGroups, fmt.Sprintf("/aws/rds/instance/%s/%s", identifier, export))
	}

	if mode != ModePrimary {
		inst.SourceDBInstanceIdentifier = ptr(d.SourceDBIdentifier)
	}

	// Engine, credentials, db name, and group attachments belong to primary
	// mode only; replicas of either kind inherit them from the source.
	if mode == ModePrimary {
		inst.Engine = ptr(d.Engine)
		inst.EngineVersion = ptr(d.EngineVersion)
		if d.LicenseModel != "" {
			inst.LicenseModel = ptr(d.LicenseModel)
		}
		inst.DBName = ptr(d.DBName)
		inst.MasterUsername = ptr(d.MasterUsername)
		inst.OptionGroupName = ptr(topo.OptionGroupName)
		inst.ParameterGroupName = ptr(topo.ParameterGroupName)
	}

	// Storage, subnet placement, and backups follow the primary branch AND
	// the cross-region branch: a cross-region replica lives in its own VPC
	// and takes its own backups.
	if mode == ModePrimary || mode == ModeCrossRegion {
		if d.Storage.AllocatedGB > 0 {
			inst.AllocatedStorage = ptr(d.Storage.AllocatedGB)
		}
		if d.Storage.MaxAllocatedGB > 0 {
			inst.MaxAllocatedStorage = ptr(d.Storage.MaxAllocatedGB)
		}
		if d.Storage.IOPS > 0 {
			inst.IOPS = ptr(d.Storage.IOPS)
		}
		if d.Storage.Type != "" {
			inst.StorageType = ptr(d.Storage.Type)
		}
		inst.SubnetGroupName = ptr(topo.SubnetGroupName)
		inst.BackupRetentionDays = ptr(d.BackupRetentionDays)
		if d.BackupWindow != "" {
			inst.BackupWindow = ptr(d.BackupWindow)
		}
		if d.MaintenanceWindow != "" {
			inst.MaintenanceWindow = ptr(d.MaintenanceWindow)
		}
	}

	if !d.SkipFinalSnapshot {
		if d.FinalSnapshotIdentifier != "" {
			inst.FinalSnapshotIdentifier = ptr(d.FinalSnapshotIdentifier)
		} else {
			inst.FinalSnapshotIdentifier = ptr(identifier + "-final")
		}
	}

	return inst
}

// ExpandIngress expands configured ingress rules into one security rule per
// entry, defaulting unset ports to the Oracle listener port and unset
// protocols to tcp.
func ExpandIngress(rules []config.IngressRule) []SecurityRule {
	expanded := make([]SecurityRule, 0, len(rules))
	for _, r := range rules {
		rule := SecurityRule{
			Description: r.Description,
			CIDR:        r.CIDR,
			FromPort:    r.FromPort,
			ToPort:      r.ToPort,
			Protocol:    r.Protocol,
		}
		if rule.FromPort == 0 {
			rule.FromPort = config.DefaultPort
		}
		if rule.ToPort == 0 {
			rule.ToPort = rule.FromPort
		}
		if rule.Protocol == "" {
			rule.Protocol = "tcp"
		}
		expanded = append(expanded, rule)
	}
	return expanded
}

// allowAllEgress is the fixed egress rule appended to every security group.
func allowAllEgress() SecurityRule {
	return SecurityRule{
		Description: "allow all outbound",
		CIDR:        "0.0.0.0/0",
		FromPort:    0,
		ToPort:      0,
		Protocol:    "-1",
	}
}

// MergeTags merges the mandatory tag mapping over the deployment's local
// tags. Mandatory tags win: the convention is centrally enforced.
func MergeTags(local, mandatory map[string]string) map[string]string {
	merged := make(map[string]string, len(local)+len(mandatory))
	for k, v := range local {
		merged[k] = v
	}
	for k, v := range mandatory {
		merged[k] = v
	}
	return merged
}

func ptr[T any](v T) *T {
	return &v
}
