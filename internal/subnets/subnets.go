// Package subnets discovers the private subnets eligible for a DB subnet
// group inside a VPC.
package subnets

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"
)

// MinAvailableIPs is the exclusive floor on free addresses a subnet must
// have to be eligible. A subnet with exactly this many is rejected.
const MinAvailableIPs = 5

// networkTag marks subnets routed without an internet gateway.
const (
	networkTagKey   = "Network"
	networkTagValue = "Private"
)

// DescribeSubnetsAPI is the slice of the EC2 API the finder needs.
type DescribeSubnetsAPI interface {
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
}

// Subnet is one eligible subnet.
type Subnet struct {
	ID               string `json:"id"`
	AvailabilityZone string `json:"availability_zone"`
	CIDR             string `json:"cidr"`
	AvailableIPs     int32  `json:"available_ips"`
}

// Finder queries EC2 for eligible subnets.
type Finder struct {
	client DescribeSubnetsAPI
	log    *zap.SugaredLogger
}

// NewFinder returns a Finder backed by the given EC2 client.
func NewFinder(client DescribeSubnetsAPI, log *zap.SugaredLogger) *Finder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Finder{client: client, log: log}
}

// NewFinderFromConfig loads the default AWS configuration for region and
// returns a Finder over a real EC2 client.
func NewFinderFromConfig(ctx context.Context, region string, log *zap.SugaredLogger) (*Finder, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS configuration")
	}

	return NewFinder(ec2.NewFromConfig(cfg), log), nil
}

// PrivateSubnets returns the subnets in vpcID tagged Network=Private with
// more than MinAvailableIPs free addresses, sorted by availability zone then
// subnet ID. An empty result is an error: a subnet group cannot be built
// from nothing.
func (f *Finder) PrivateSubnets(ctx context.Context, vpcID string) ([]Subnet, error) {
	input := &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
			{Name: aws.String("tag:" + networkTagKey), Values: []string{networkTagValue}},
		},
	}

	seen := sets.New[string]()
	var eligible []Subnet

	for {
		out, err := f.client.DescribeSubnets(ctx, input)
		if err != nil {
			return nil, errors.Wrapf(err, "describing subnets in %s", vpcID)
		}

		for _, s := range out.Subnets {
			id := aws.ToString(s.SubnetId)
			if seen.Has(id) {
				continue
			}
			seen.Insert(id)

			free := aws.ToInt32(s.AvailableIpAddressCount)
			if free <= MinAvailableIPs {
				f.log.Debugw("skipping subnet with too few free addresses",
					"subnet", id, "available", free)
				continue
			}

			eligible = append(eligible, Subnet{
				ID:               id,
				AvailabilityZone: aws.ToString(s.AvailabilityZone),
				CIDR:             aws.ToString(s.CidrBlock),
				AvailableIPs:     free,
			})
		}

		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	if len(eligible) == 0 {
		return nil, errors.Errorf("no private subnets with more than %d free addresses in %s", MinAvailableIPs, vpcID)
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].AvailabilityZone != eligible[j].AvailabilityZone {
			return eligible[i].AvailabilityZone < eligible[j].AvailabilityZone
		}
		return eligible[i].ID < eligible[j].ID
	})

	f.log.Infow("resolved private subnets", "vpc", vpcID, "count", len(eligible))
	return eligible, nil
}

// IDs extracts the subnet IDs in order.
func IDs(subs []Subnet) []string {
	ids := make([]string, len(subs))
	for i, s := range subs {
		ids[i] = s.ID
	}
	return ids
}
