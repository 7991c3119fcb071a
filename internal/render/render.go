// Package render turns a resolved topology into the CloudFormation-shaped
// plan document consumed by the external provisioning engine.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/oraplan/oraplan"
	"github.com/oraplan/oraplan/internal/config"
	"github.com/oraplan/oraplan/internal/options"
	"github.com/oraplan/oraplan/internal/resolve"
)

// LogGroupRetentionDays is applied to every rendered Oracle log group.
const LogGroupRetentionDays = 30

// Builder constructs the plan document for one resolved deployment.
type Builder struct {
	cfg  *config.Deployment
	topo *resolve.Topology
	doc  *options.Document

	subnetIDs []string
}

// NewBuilder creates a builder. The option document may be nil for replica
// modes, which own no option or parameter group.
func NewBuilder(cfg *config.Deployment, topo *resolve.Topology, doc *options.Document) *Builder {
	return &Builder{cfg: cfg, topo: topo, doc: doc}
}

// SetSubnetIDs supplies pre-filtered subnet IDs for the subnet group. When
// unset, the subnet group is rendered without SubnetIds and the provisioning
// engine resolves placement itself.
func (b *Builder) SetSubnetIDs(ids []string) {
	b.subnetIDs = ids
}

type tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type securityRule struct {
	CidrIP      string `json:"CidrIp"`
	Description string `json:"Description,omitempty"`
	FromPort    int    `json:"FromPort"`
	ToPort      int    `json:"ToPort"`
	IPProtocol  string `json:"IpProtocol"`
}

type optionConfiguration struct {
	OptionName     string          `json:"OptionName"`
	Port           *int            `json:"Port,omitempty"`
	OptionVersion  string          `json:"OptionVersion,omitempty"`
	OptionSettings []optionSetting `json:"OptionSettings,omitempty"`
}

type optionSetting struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type dbInstanceProperties struct {
	DBInstanceIdentifier string  `json:"DBInstanceIdentifier"`
	DBInstanceClass      string  `json:"DBInstanceClass"`
	Engine               *string `json:"Engine,omitempty"`
	EngineVersion        *string `json:"EngineVersion,omitempty"`
	LicenseModel         *string `json:"LicenseModel,omitempty"`
	DBName               *string `json:"DBName,omitempty"`
	MasterUsername       *string `json:"MasterUsername,omitempty"`
	AllocatedStorage     *int    `json:"AllocatedStorage,omitempty"`
	MaxAllocatedStorage  *int    `json:"MaxAllocatedStorage,omitempty"`
	Iops                 *int    `json:"Iops,omitempty"`
	StorageType          *string `json:"StorageType,omitempty"`
	Port                 int     `json:"Port"`
	MultiAZ              bool    `json:"MultiAZ,omitempty"`
	KmsKeyID             *string `json:"KmsKeyId,omitempty"`
	StorageEncrypted     bool    `json:"StorageEncrypted,omitempty"`

	OptionGroupName      *string `json:"OptionGroupName,omitempty"`
	DBParameterGroupName *string `json:"DBParameterGroupName,omitempty"`
	DBSubnetGroupName    *string `json:"DBSubnetGroupName,omitempty"`

	BackupRetentionPeriod      *int    `json:"BackupRetentionPeriod,omitempty"`
	PreferredBackupWindow      *string `json:"PreferredBackupWindow,omitempty"`
	PreferredMaintenanceWindow *string `json:"PreferredMaintenanceWindow,omitempty"`

	SourceDBInstanceIdentifier *string `json:"SourceDBInstanceIdentifier,omitempty"`

	EnableCloudwatchLogsExports []string `json:"EnableCloudwatchLogsExports,omitempty"`
	Tags                        []tag    `json:"Tags,omitempty"`
}

// Build constructs the plan document. Resource names are deterministic so
// repeated builds of the same config diff clean.
func (b *Builder) Build() (*oraplan.Plan, error) {
	plan := &oraplan.Plan{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              fmt.Sprintf("Oracle RDS deployment %s (%s)", b.cfg.Identifier, b.topo.Mode),
		Resources:                make(map[string]oraplan.ResourceDef),
	}

	tags := sortedTags(b.topo.Tags)
	var instanceDeps []string

	if b.topo.SecurityGroup.VPCID != "" {
		plan.Resources["SecurityGroup"] = b.securityGroup(tags)
		instanceDeps = append(instanceDeps, "SecurityGroup")
	}

	if b.topo.SubnetGroupName != "" {
		plan.Resources["SubnetGroup"] = b.subnetGroup(tags)
		instanceDeps = append(instanceDeps, "SubnetGroup")
	}

	if b.topo.ParameterGroupName != "" {
		def, err := b.parameterGroup(tags)
		if err != nil {
			return nil, err
		}
		plan.Resources["ParameterGroup"] = def
		instanceDeps = append(instanceDeps, "ParameterGroup")
	}

	if b.topo.OptionGroupName != "" {
		def, err := b.optionGroup(tags)
		if err != nil {
			return nil, err
		}
		plan.Resources["OptionGroup"] = def
		instanceDeps = append(instanceDeps, "OptionGroup")
	}

	for _, inst := range b.topo.Instances {
		instLogical := LogicalName(inst.Identifier)

		deps := append([]string(nil), instanceDeps...)
		for _, lg := range inst.LogGroups {
			logical := logGroupLogicalName(instLogical, lg)
			plan.Resources[logical] = oraplan.ResourceDef{
				Type: "AWS::Logs::LogGroup",
				Properties: map[string]any{
					"LogGroupName":    lg,
					"RetentionInDays": LogGroupRetentionDays,
				},
			}
			deps = append(deps, logical)
		}
		sort.Strings(deps)

		plan.Resources[instLogical] = b.dbInstance(inst, tags, deps)

		if inst.Mode == resolve.ModePrimary {
			plan.Resources[instLogical+"Secret"] = b.secret(inst, tags, instLogical)
		}
	}

	return plan, nil
}

func (b *Builder) securityGroup(tags []tag) oraplan.ResourceDef {
	toRules := func(rules []resolve.SecurityRule) []securityRule {
		out := make([]securityRule, 0, len(rules))
		for _, r := range rules {
			out = append(out, securityRule{
				CidrIP:      r.CIDR,
				Description: r.Description,
				FromPort:    r.FromPort,
				ToPort:      r.ToPort,
				IPProtocol:  r.Protocol,
			})
		}
		return out
	}

	props := map[string]any{
		"GroupName":           b.topo.SecurityGroup.Name,
		"GroupDescription":    fmt.Sprintf("Database access for %s", b.cfg.Identifier),
		"VpcId":               b.topo.SecurityGroup.VPCID,
		"SecurityGroupEgress": serializeRules(toRules(b.topo.SecurityGroup.Egress)),
		"Tags":                serializeTags(tags),
	}
	if len(b.topo.SecurityGroup.Ingress) > 0 {
		props["SecurityGroupIngress"] = serializeRules(toRules(b.topo.SecurityGroup.Ingress))
	}

	return oraplan.ResourceDef{Type: "AWS::EC2::SecurityGroup", Properties: props}
}

func (b *Builder) subnetGroup(tags []tag) oraplan.ResourceDef {
	props := map[string]any{
		"DBSubnetGroupName":        b.topo.SubnetGroupName,
		"DBSubnetGroupDescription": fmt.Sprintf("Private subnets for %s", b.cfg.Identifier),
		"Tags":                     serializeTags(tags),
	}
	if len(b.subnetIDs) > 0 {
		props["SubnetIds"] = b.subnetIDs
	}
	return oraplan.ResourceDef{Type: "AWS::RDS::DBSubnetGroup", Properties: props}
}

func (b *Builder) parameterGroup(tags []tag) (oraplan.ResourceDef, error) {
	if b.doc == nil {
		return oraplan.ResourceDef{}, fmt.Errorf("option document required to render parameter group %s", b.topo.ParameterGroupName)
	}

	params := make(map[string]string, len(b.doc.Parameters()))
	for _, p := range b.doc.Parameters() {
		params[p.Name] = p.Value
	}

	family, err := parameterGroupFamily(b.cfg.Engine, b.cfg.EngineVersion)
	if err != nil {
		return oraplan.ResourceDef{}, err
	}

	return oraplan.ResourceDef{
		Type: "AWS::RDS::DBParameterGroup",
		Properties: map[string]any{
			"Description": fmt.Sprintf("Parameters for %s", b.cfg.Identifier),
			"Family":      family,
			"Parameters":  params,
			"Tags":        serializeTags(tags),
		},
	}, nil
}

func (b *Builder) optionGroup(tags []tag) (oraplan.ResourceDef, error) {
	if b.doc == nil {
		return oraplan.ResourceDef{}, fmt.Errorf("option document required to render option group %s", b.topo.OptionGroupName)
	}

	selected := b.doc.Options(b.cfg.EnableSSLOption)
	configs := make([]optionConfiguration, 0, len(selected))
	for _, o := range selected {
		cfg := optionConfiguration{
			OptionName:    o.Name,
			Port:          o.Port,
			OptionVersion: o.Version,
		}
		for _, s := range o.Settings {
			cfg.OptionSettings = append(cfg.OptionSettings, optionSetting{Name: s.Name, Value: s.Value})
		}
		configs = append(configs, cfg)
	}

	major, err := majorEngineVersion(b.cfg.EngineVersion)
	if err != nil {
		return oraplan.ResourceDef{}, err
	}

	return oraplan.ResourceDef{
		Type: "AWS::RDS::OptionGroup",
		Properties: map[string]any{
			"EngineName":             b.cfg.Engine,
			"MajorEngineVersion":     major,
			"OptionGroupDescription": fmt.Sprintf("Options for %s", b.cfg.Identifier),
			"OptionConfigurations":   serializeConfigs(configs),
			"Tags":                   serializeTags(tags),
		},
	}, nil
}

func (b *Builder) dbInstance(inst resolve.InstancePlan, tags []tag, deps []string) oraplan.ResourceDef {
	props := dbInstanceProperties{
		DBInstanceIdentifier:       inst.Identifier,
		DBInstanceClass:            inst.InstanceClass,
		Engine:                     inst.Engine,
		EngineVersion:              inst.EngineVersion,
		LicenseModel:               inst.LicenseModel,
		DBName:                     inst.DBName,
		MasterUsername:             inst.MasterUsername,
		AllocatedStorage:           inst.AllocatedStorage,
		MaxAllocatedStorage:        inst.MaxAllocatedStorage,
		Iops:                       inst.IOPS,
		StorageType:                inst.StorageType,
		Port:                       inst.Port,
		MultiAZ:                    inst.MultiAZ,
		KmsKeyID:                   inst.KMSKeyID,
		StorageEncrypted:           inst.KMSKeyID != nil,
		OptionGroupName:            inst.OptionGroupName,
		DBParameterGroupName:       inst.ParameterGroupName,
		DBSubnetGroupName:          inst.SubnetGroupName,
		BackupRetentionPeriod:      inst.BackupRetentionDays,
		PreferredBackupWindow:      inst.BackupWindow,
		PreferredMaintenanceWindow: inst.MaintenanceWindow,
		SourceDBInstanceIdentifier: inst.SourceDBInstanceIdentifier,
		Tags:                       tags,
	}
	if inst.Mode == resolve.ModePrimary {
		props.EnableCloudwatchLogsExports = []string{"alert", "audit", "listener", "trace"}
	}

	deletionPolicy := "Snapshot"
	if inst.FinalSnapshotIdentifier == nil {
		deletionPolicy = "Delete"
	}

	return oraplan.ResourceDef{
		Type:           "AWS::RDS::DBInstance",
		Properties:     properties(props),
		DependsOn:      deps,
		DeletionPolicy: deletionPolicy,
	}
}

func (b *Builder) secret(inst resolve.InstancePlan, tags []tag, instLogical string) oraplan.ResourceDef {
	prefix := "aws-orcl-nonprod"
	if b.cfg.Environment == config.EnvironmentProd {
		prefix = "aws-orcl-prod"
	}

	username := ""
	if inst.MasterUsername != nil {
		username = *inst.MasterUsername
	}

	return oraplan.ResourceDef{
		Type: "AWS::SecretsManager::Secret",
		Properties: map[string]any{
			"Name":        fmt.Sprintf("%s/%s", prefix, inst.Identifier),
			"Description": fmt.Sprintf("Master credentials for %s", inst.Identifier),
			"GenerateSecretString": map[string]any{
				"SecretStringTemplate": fmt.Sprintf(`{"username":%q}`, username),
				"GenerateStringKey":    "password",
				"PasswordLength":       b.cfg.Password.Length,
				"ExcludeCharacters":    `"@/\`,
			},
			"Tags": serializeTags(tags),
		},
		DependsOn: []string{instLogical},
	}
}

// parameterGroupFamily derives the RDS parameter group family, e.g.
// oracle-ee + 19.0.0.0.x -> oracle-ee-19.
func parameterGroupFamily(engine, version string) (string, error) {
	major, err := majorEngineVersion(version)
	if err != nil {
		return "", err
	}
	return engine + "-" + major, nil
}

func majorEngineVersion(version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("engine version is empty")
	}
	return strings.SplitN(version, ".", 2)[0], nil
}

// LogicalName converts an instance identifier to a template logical ID:
// "ordb-01" -> "Ordb01".
func LogicalName(identifier string) string {
	var sb strings.Builder
	upper := true
	for _, r := range identifier {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func logGroupLogicalName(instLogical, logGroup string) string {
	parts := strings.Split(logGroup, "/")
	export := parts[len(parts)-1]
	return instLogical + LogicalName(export) + "LogGroup"
}

func sortedTags(m map[string]string) []tag {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, tag{Key: k, Value: m[k]})
	}
	return tags
}

func serializeTags(tags []tag) []any {
	out := make([]any, 0, len(tags))
	for _, t := range tags {
		out = append(out, properties(t))
	}
	return out
}

func serializeRules(rules []securityRule) []any {
	out := make([]any, 0, len(rules))
	for _, r := range rules {
		out = append(out, properties(r))
	}
	return out
}

func serializeConfigs(configs []optionConfiguration) []any {
	out := make([]any, 0, len(configs))
	for _, c := range configs {
		out = append(out, properties(c))
	}
	return out
}

// ToJSON renders a plan as indented JSON.
func ToJSON(p *oraplan.Plan) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// ToYAML renders a plan as YAML.
func ToYAML(p *oraplan.Plan) ([]byte, error) {
	return yaml.Marshal(p)
}
