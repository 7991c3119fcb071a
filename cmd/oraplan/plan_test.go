package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `identifier: ordb
instance_count: 2
engine: oracle-ee
engine_version: 19.0.0.0.ru-2024-01.rur-2024-01.r1
instance_class: db.m5.xlarge
db_name: ORCL
storage:
  type: gp3
  allocated_gb: 200
network:
  vpc_id: vpc-0123456789abcdef0
  ingress:
    - description: app tier
      cidr: 10.0.0.0/8
option_group_source: options.json
environment: nonprod
`

const testOptions = `{
  "parameter_group_parameters": [
    {"name": "open_cursors", "value": "300"}
  ],
  "option_group_options": [
    {"name": "Timezone", "settings": [{"name": "TIME_ZONE", "value": "UTC"}]}
  ],
  "ssl_option": [
    {"name": "SSL", "port": 2484}
  ]
}
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	configPath := filepath.Join(dir, "deploy.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "options.json"), []byte(testOptions), 0644))

	return configPath
}

func TestBuildPlan(t *testing.T) {
	configPath := writeFixtures(t)

	plan, err := buildPlan(configPath, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, plan.Resources, "Ordb01")
	assert.Contains(t, plan.Resources, "Ordb02")
	assert.Contains(t, plan.Resources, "OptionGroup")
	assert.Contains(t, plan.Resources, "SecurityGroup")
}

func TestBuildPlan_MandatoryTags(t *testing.T) {
	configPath := writeFixtures(t)

	plan, err := buildPlan(configPath, []string{"CostCenter=db-ops"}, nil)
	require.NoError(t, err)

	inst := plan.Resources["Ordb01"]
	tags, ok := inst.Properties["Tags"].([]any)
	require.True(t, ok)

	found := false
	for _, entry := range tags {
		m, ok := entry.(map[string]any)
		require.True(t, ok)
		if m["Key"] == "CostCenter" && m["Value"] == "db-ops" {
			found = true
		}
	}
	assert.True(t, found, "mandatory tag missing from instance")
}

func TestBuildPlan_SubnetIDs(t *testing.T) {
	configPath := writeFixtures(t)

	plan, err := buildPlan(configPath, nil, []string{"subnet-a", "subnet-b"})
	require.NoError(t, err)

	sng := plan.Resources["SubnetGroup"]
	assert.Equal(t, []string{"subnet-a", "subnet-b"}, sng.Properties["SubnetIds"])
}

func TestBuildPlan_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "deploy.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("identifier: \"-bad-\"\n"), 0644))

	_, err := buildPlan(configPath, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestParseTags(t *testing.T) {
	tags, err := parseTags([]string{"Owner=dba", "CostCenter=db-ops"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Owner": "dba", "CostCenter": "db-ops"}, tags)
}

func TestParseTags_Invalid(t *testing.T) {
	_, err := parseTags([]string{"no-equals"})
	require.Error(t, err)

	_, err = parseTags([]string{"=value"})
	require.Error(t, err)
}

func TestParseTags_Empty(t *testing.T) {
	tags, err := parseTags(nil)
	require.NoError(t, err)
	assert.Nil(t, tags)
}

func TestWatchedFile(t *testing.T) {
	assert.True(t, watchedFile("deploy.yaml"))
	assert.True(t, watchedFile("options.json"))
	assert.False(t, watchedFile("notes.txt"))
	assert.False(t, watchedFile(".deploy.yaml.swp"))
}
