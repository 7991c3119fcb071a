package graph

import (
	"strings"
	"testing"

	"github.com/oraplan/oraplan"
)

func testPlan() *oraplan.Plan {
	return &oraplan.Plan{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]oraplan.ResourceDef{
			"SubnetGroup": {
				Type: "AWS::RDS::DBSubnetGroup",
			},
			"SecurityGroup": {
				Type: "AWS::EC2::SecurityGroup",
			},
			"Ordb": {
				Type:      "AWS::RDS::DBInstance",
				DependsOn: []string{"SubnetGroup", "SecurityGroup"},
			},
		},
	}
}

func TestGenerator_Generate_DOT(t *testing.T) {
	gen := &Generator{}

	output, err := gen.GenerateString(testPlan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "digraph") {
		t.Error("expected DOT digraph output")
	}
	for _, name := range []string{"Ordb", "SubnetGroup", "SecurityGroup"} {
		if !strings.Contains(output, name) {
			t.Errorf("expected node %s in output", name)
		}
	}
	if !strings.Contains(output, "->") {
		t.Error("expected dependency edges in output")
	}
}

func TestGenerator_Generate_Mermaid(t *testing.T) {
	gen := &Generator{Format: FormatMermaid}

	output, err := gen.GenerateString(testPlan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "graph") {
		t.Error("expected mermaid graph output")
	}
}

func TestGenerator_SkipsDanglingDependencies(t *testing.T) {
	plan := testPlan()
	ordb := plan.Resources["Ordb"]
	ordb.DependsOn = append(ordb.DependsOn, "NotRendered")
	plan.Resources["Ordb"] = ordb

	gen := &Generator{}
	output, err := gen.GenerateString(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(output, "NotRendered") {
		t.Error("dangling dependency should not produce a node")
	}
}

func TestGenerator_ClusterByService(t *testing.T) {
	gen := &Generator{ClusterByType: true}

	output, err := gen.GenerateString(testPlan())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "cluster_RDS") {
		t.Error("expected RDS cluster for multiple RDS resources")
	}
}

func TestExtractService(t *testing.T) {
	if got := extractService("AWS::RDS::DBInstance"); got != "RDS" {
		t.Errorf("expected RDS, got %s", got)
	}
	if got := extractService("weird"); got != "Other" {
		t.Errorf("expected Other, got %s", got)
	}
}
