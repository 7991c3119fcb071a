package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const primaryYAML = `
identifier: ordb
instance_count: 2
engine: oracle-ee
engine_version: "19.0.0.0.ru-2024-01.rur-2024-01.r1"
instance_class: db.m5.xlarge
db_name: ORCL
storage:
  type: gp3
  allocated_gb: 200
  max_allocated_gb: 500
network:
  vpc_id: vpc-0123456789abcdef0
  ingress:
    - cidr: 10.20.0.0/16
      description: app subnets
option_group_source: options.json
environment: prod
tags:
  team: dba
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Primary(t *testing.T) {
	d, err := Load(writeConfig(t, primaryYAML))
	require.NoError(t, err)

	assert.Equal(t, "ordb", d.Identifier)
	assert.Equal(t, 2, d.InstanceCount)
	assert.Equal(t, "oracle-ee", d.Engine)
	assert.Equal(t, 200, d.Storage.AllocatedGB)
	assert.False(t, d.IsReplica())

	// Defaults.
	assert.Equal(t, DefaultPort, d.Port)
	assert.Equal(t, DefaultPasswordLength, d.Password.Length)
	assert.Equal(t, "dbadmin", d.MasterUsername)
	assert.Equal(t, EnvironmentProd, d.Environment)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "identifier: ordb\ninstance_cuont: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance_cuont")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_PrimaryOK(t *testing.T) {
	d, err := Load(writeConfig(t, primaryYAML))
	require.NoError(t, err)
	assert.Empty(t, Validate(d))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	d := &Deployment{
		Identifier:    "1bad--name-",
		InstanceCount: 0,
		Engine:        "mysql",
		Environment:   "staging",
	}

	errs := Validate(d)
	require.NotEmpty(t, errs)

	joined := ""
	for _, e := range errs {
		joined += e.Error() + "\n"
	}
	assert.Contains(t, joined, "instance_count")
	assert.Contains(t, joined, "consecutive hyphens")
	assert.Contains(t, joined, "unsupported engine")
	assert.Contains(t, joined, "environment")
}

func TestValidate_ReplicaRequiresSource(t *testing.T) {
	d := &Deployment{
		Identifier:    "ordb",
		InstanceCount: 1,
		ReadReplica:   true,
		InstanceClass: "db.m5.large",
		Environment:   EnvironmentNonProd,
	}

	errs := Validate(d)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "source_db_identifier")
}

func TestValidate_CrossRegionImpliesReplica(t *testing.T) {
	d := &Deployment{
		Identifier:         "ordb",
		InstanceCount:      1,
		CrossRegion:        true,
		SourceDBIdentifier: "ordb-src",
		InstanceClass:      "db.m5.large",
		Environment:        EnvironmentNonProd,
	}

	errs := Validate(d)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "cross_region requires read_replica")
}

func TestValidate_ReplicaMustNotSetDBName(t *testing.T) {
	d := &Deployment{
		Identifier:         "ordb",
		InstanceCount:      1,
		ReadReplica:        true,
		SourceDBIdentifier: "ordb-src",
		DBName:             "ORCL",
		InstanceClass:      "db.m5.large",
		Environment:        EnvironmentNonProd,
	}

	errs := Validate(d)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "db_name must not be set")
}

func TestValidate_SuffixedInstanceCap(t *testing.T) {
	d, err := Load(writeConfig(t, primaryYAML))
	require.NoError(t, err)

	d.InstanceCount = 10
	errs := Validate(d)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "-0<n> identifier convention")

	d.InstanceCount = 9
	assert.Empty(t, Validate(d))
}

func TestValidate_StorageCeilingBelowAllocation(t *testing.T) {
	d, err := Load(writeConfig(t, primaryYAML))
	require.NoError(t, err)

	d.Storage.MaxAllocatedGB = 100
	errs := Validate(d)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "max_allocated_gb")
}

func TestValidate_KMSKeyARN(t *testing.T) {
	d, err := Load(writeConfig(t, primaryYAML))
	require.NoError(t, err)

	d.KMSKeyID = "not-an-arn"
	errs := Validate(d)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "KMS key ARN")

	d.KMSKeyID = "arn:aws:kms:eu-west-1:123456789012:key/0b1c2d3e-4f5a-6789-abcd-ef0123456789"
	assert.Empty(t, Validate(d))
}
