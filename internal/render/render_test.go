package render

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oraplan/oraplan/internal/config"
	"github.com/oraplan/oraplan/internal/options"
	"github.com/oraplan/oraplan/internal/resolve"
)

func testDeployment() *config.Deployment {
	return &config.Deployment{
		Identifier:     "ordb",
		InstanceCount:  1,
		Engine:         "oracle-ee",
		EngineVersion:  "19.0.0.0.ru-2024-01.rur-2024-01.r1",
		InstanceClass:  "db.m5.xlarge",
		DBName:         "ORCL",
		MasterUsername: "dbadmin",
		Port:           1521,
		Storage:        config.Storage{Type: "gp3", AllocatedGB: 200},
		Network: config.Network{
			VPCID:   "vpc-0123456789abcdef0",
			Ingress: []config.IngressRule{{CIDR: "10.20.0.0/16"}},
		},
		BackupRetentionDays: 14,
		Environment:         config.EnvironmentProd,
		Password:            config.Password{Length: 30},
		Tags:                map[string]string{"team": "dba"},
	}
}

func testDocument() *options.Document {
	port := 1521
	sslPort := 2484
	return &options.Document{
		ParameterGroupParameters: []options.Parameter{{Name: "open_cursors", Value: "3000"}},
		OptionGroupOptions:       []options.Option{{Name: "STATSPACK", Port: &port}},
		SSLOption: []options.Option{{
			Name: "SSL",
			Port: &sslPort,
			Settings: []options.Setting{
				{Name: "SQLNET.SSL_VERSION", Value: "1.2"},
			},
		}},
	}
}

func buildPlan(t *testing.T, cfg *config.Deployment, doc *options.Document) map[string]any {
	t.Helper()

	topo, err := resolve.Resolve(cfg, map[string]string{"managed-by": "oraplan"})
	require.NoError(t, err)

	plan, err := NewBuilder(cfg, topo, doc).Build()
	require.NoError(t, err)

	resources := make(map[string]any, len(plan.Resources))
	for name, def := range plan.Resources {
		resources[name] = def
	}
	return resources
}

func TestBuild_PrimaryResourceSet(t *testing.T) {
	cfg := testDeployment()
	topo, err := resolve.Resolve(cfg, nil)
	require.NoError(t, err)

	plan, err := NewBuilder(cfg, topo, testDocument()).Build()
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", plan.AWSTemplateFormatVersion)

	for _, name := range []string{
		"SecurityGroup", "SubnetGroup", "ParameterGroup", "OptionGroup",
		"Ordb", "OrdbSecret",
		"OrdbAlertLogGroup", "OrdbAuditLogGroup", "OrdbListenerLogGroup", "OrdbTraceLogGroup",
	} {
		assert.Contains(t, plan.Resources, name)
	}

	inst := plan.Resources["Ordb"]
	assert.Equal(t, "AWS::RDS::DBInstance", inst.Type)
	assert.Equal(t, "Snapshot", inst.DeletionPolicy)
	assert.Contains(t, inst.DependsOn, "OptionGroup")
	assert.Contains(t, inst.DependsOn, "OrdbAlertLogGroup")

	assert.Equal(t, "oracle-ee", inst.Properties["Engine"])
	assert.Equal(t, "ORCL", inst.Properties["DBName"])
	assert.Equal(t, 200, inst.Properties["AllocatedStorage"])
}

func TestBuild_ReplicaOmitsInheritedProperties(t *testing.T) {
	cfg := &config.Deployment{
		Identifier:         "ordb-rr",
		InstanceCount:      1,
		ReadReplica:        true,
		SourceDBIdentifier: "ordb",
		InstanceClass:      "db.m5.xlarge",
		Port:               1521,
		SkipFinalSnapshot:  true,
		Environment:        config.EnvironmentNonProd,
		Network:            config.Network{VPCID: "vpc-0123456789abcdef0"},
	}

	topo, err := resolve.Resolve(cfg, nil)
	require.NoError(t, err)

	plan, err := NewBuilder(cfg, topo, nil).Build()
	require.NoError(t, err)

	assert.NotContains(t, plan.Resources, "OptionGroup")
	assert.NotContains(t, plan.Resources, "ParameterGroup")
	assert.NotContains(t, plan.Resources, "SubnetGroup")
	assert.NotContains(t, plan.Resources, "OrdbRr01Secret")

	inst := plan.Resources["OrdbRr01"]
	require.NotNil(t, inst.Properties)
	assert.Equal(t, "Delete", inst.DeletionPolicy)
	assert.Equal(t, "ordb", inst.Properties["SourceDBInstanceIdentifier"])

	// Inherited fields must be absent, not empty.
	for _, key := range []string{
		"Engine", "EngineVersion", "DBName", "MasterUsername",
		"AllocatedStorage", "OptionGroupName", "DBParameterGroupName",
		"DBSubnetGroupName", "BackupRetentionPeriod",
	} {
		assert.NotContains(t, inst.Properties, key)
	}
}

func TestBuild_SSLToggleChangesOnlyOptionGroup(t *testing.T) {
	cfg := testDeployment()
	plain := buildPlan(t, cfg, testDocument())

	cfg.EnableSSLOption = true
	ssl := buildPlan(t, cfg, testDocument())

	if diff := cmp.Diff(plain["ParameterGroup"], ssl["ParameterGroup"]); diff != "" {
		t.Errorf("parameter group changed with SSL toggle:\n%s", diff)
	}
	if diff := cmp.Diff(plain["OptionGroup"], ssl["OptionGroup"]); diff == "" {
		t.Error("option group did not change with SSL toggle")
	}
}

func TestBuild_SecurityGroupHasSingleEgress(t *testing.T) {
	cfg := testDeployment()
	topo, err := resolve.Resolve(cfg, nil)
	require.NoError(t, err)

	plan, err := NewBuilder(cfg, topo, testDocument()).Build()
	require.NoError(t, err)

	sg := plan.Resources["SecurityGroup"]
	egress := sg.Properties["SecurityGroupEgress"].([]any)
	require.Len(t, egress, 1)

	rule := egress[0].(map[string]any)
	assert.Equal(t, "0.0.0.0/0", rule["CidrIp"])
	assert.Equal(t, "-1", rule["IpProtocol"])

	ingress := sg.Properties["SecurityGroupIngress"].([]any)
	require.Len(t, ingress, 1)
	first := ingress[0].(map[string]any)
	assert.Equal(t, 1521, first["FromPort"])
}

func TestBuild_SubnetIDsWhenProvided(t *testing.T) {
	cfg := testDeployment()
	topo, err := resolve.Resolve(cfg, nil)
	require.NoError(t, err)

	builder := NewBuilder(cfg, topo, testDocument())
	builder.SetSubnetIDs([]string{"subnet-aaa", "subnet-bbb"})

	plan, err := builder.Build()
	require.NoError(t, err)

	sng := plan.Resources["SubnetGroup"]
	assert.Equal(t, []string{"subnet-aaa", "subnet-bbb"}, sng.Properties["SubnetIds"])
}

func TestBuild_MandatoryTagsOnEveryTaggedResource(t *testing.T) {
	cfg := testDeployment()
	topo, err := resolve.Resolve(cfg, map[string]string{"managed-by": "oraplan"})
	require.NoError(t, err)

	plan, err := NewBuilder(cfg, topo, testDocument()).Build()
	require.NoError(t, err)

	for _, name := range []string{"SecurityGroup", "SubnetGroup", "ParameterGroup", "OptionGroup", "Ordb", "OrdbSecret"} {
		tags, ok := plan.Resources[name].Properties["Tags"].([]any)
		require.True(t, ok, "%s has no tags", name)

		found := false
		for _, raw := range tags {
			kv := raw.(map[string]any)
			if kv["Key"] == "managed-by" && kv["Value"] == "oraplan" {
				found = true
			}
		}
		assert.True(t, found, "%s missing mandatory tag", name)
	}
}

func TestParameterGroupFamily(t *testing.T) {
	family, err := parameterGroupFamily("oracle-ee", "19.0.0.0.ru-2024-01.rur-2024-01.r1")
	require.NoError(t, err)
	assert.Equal(t, "oracle-ee-19", family)

	_, err = parameterGroupFamily("oracle-ee", "")
	require.Error(t, err)
}

func TestLogicalName(t *testing.T) {
	assert.Equal(t, "Ordb01", LogicalName("ordb-01"))
	assert.Equal(t, "Ordb", LogicalName("ordb"))
	assert.Equal(t, "OrdbRr02", LogicalName("ordb-rr-02"))
}

func TestToJSONAndToYAML(t *testing.T) {
	cfg := testDeployment()
	topo, err := resolve.Resolve(cfg, nil)
	require.NoError(t, err)

	plan, err := NewBuilder(cfg, topo, testDocument()).Build()
	require.NoError(t, err)

	jsonData, err := ToJSON(plan)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"AWS::RDS::DBInstance"`)

	yamlData, err := ToYAML(plan)
	require.NoError(t, err)
	assert.Contains(t, string(yamlData), "AWS::RDS::DBInstance")
}
