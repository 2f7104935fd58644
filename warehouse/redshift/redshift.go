package redshift

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"
	"github.com/google/uuid"

	"github.com/redferry/redferry/warehouse"
)

// DataAPI is the subset of the Redshift Data API client used by Client.
type DataAPI interface {
	ExecuteStatement(ctx context.Context, params *redshiftdata.ExecuteStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.ExecuteStatementOutput, error)
	DescribeStatement(ctx context.Context, params *redshiftdata.DescribeStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.DescribeStatementOutput, error)
	GetStatementResult(ctx context.Context, params *redshiftdata.GetStatementResultInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.GetStatementResultOutput, error)
}

// Client implements warehouse.API against the Redshift Data API.
type Client struct {
	api      DataAPI
	database string
	dbUser   string
}

// New returns a Client issuing statements as dbUser on database.
func New(api DataAPI, database, dbUser string) *Client {
	return &Client{
		api:      api,
		database: database,
		dbUser:   dbUser,
	}
}

// NewFromConfig returns a Client backed by the AWS configuration.
func NewFromConfig(cfg aws.Config, database, dbUser string) *Client {
	return New(redshiftdata.NewFromConfig(cfg), database, dbUser)
}

// Submit submits sql for asynchronous execution against cluster.
func (c *Client) Submit(ctx context.Context, cluster, sql string) (warehouse.Handle, error) {
	out, err := c.api.ExecuteStatement(ctx, &redshiftdata.ExecuteStatementInput{
		ClusterIdentifier: aws.String(cluster),
		Database:          aws.String(c.database),
		DbUser:            aws.String(c.dbUser),
		Sql:               aws.String(sql),
		ClientToken:       aws.String(uuid.NewString()),
	})
	if err != nil {
		return warehouse.Handle{}, fmt.Errorf("unable to execute statement on cluster %s: %w", cluster, err)
	}

	return warehouse.Handle{
		ID:      aws.ToString(out.Id),
		Cluster: cluster,
	}, nil
}

// Describe returns the current state of a submitted statement.
func (c *Client) Describe(ctx context.Context, handle warehouse.Handle) (warehouse.Description, error) {
	out, err := c.api.DescribeStatement(ctx, &redshiftdata.DescribeStatementInput{
		Id: aws.String(handle.ID),
	})
	if err != nil {
		return warehouse.Description{}, fmt.Errorf("unable to describe statement %s: %w", handle.ID, err)
	}

	return warehouse.Description{
		Status:       warehouse.Status(out.Status),
		HasResultSet: aws.ToBool(out.HasResultSet),
		Error:        aws.ToString(out.Error),
	}, nil
}

// FetchResult retrieves every result page of a finished statement.
func (c *Client) FetchResult(ctx context.Context, handle warehouse.Handle) ([]warehouse.Row, error) {
	var (
		rows      []warehouse.Row
		nextToken *string
	)

	for {
		out, err := c.api.GetStatementResult(ctx, &redshiftdata.GetStatementResultInput{
			Id:        aws.String(handle.ID),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to fetch result of statement %s: %w", handle.ID, err)
		}

		for _, record := range out.Records {
			row := make(warehouse.Row, len(record))
			for i := range record {
				row[i] = fieldString(record[i])
			}

			rows = append(rows, row)
		}

		if aws.ToString(out.NextToken) == "" {
			return rows, nil
		}

		nextToken = out.NextToken
	}
}

// fieldString flattens a Data API field into its text form. NULL cells
// come back as empty strings.
func fieldString(field types.Field) string {
	switch value := field.(type) {
	case *types.FieldMemberStringValue:
		return value.Value
	case *types.FieldMemberLongValue:
		return strconv.FormatInt(value.Value, 10)
	case *types.FieldMemberDoubleValue:
		return strconv.FormatFloat(value.Value, 'f', -1, 64)
	case *types.FieldMemberBooleanValue:
		return strconv.FormatBool(value.Value)
	case *types.FieldMemberBlobValue:
		return string(value.Value)
	default:
		return ""
	}
}

var _ warehouse.API = (*Client)(nil)
