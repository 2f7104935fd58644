package redshift

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redferry/redferry/warehouse"
)

type fakeDataAPI struct {
	executeInput *redshiftdata.ExecuteStatementInput
	results      []*redshiftdata.GetStatementResultOutput
	describe     *redshiftdata.DescribeStatementOutput

	resultCalls int
}

func (f *fakeDataAPI) ExecuteStatement(ctx context.Context, params *redshiftdata.ExecuteStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.ExecuteStatementOutput, error) {
	f.executeInput = params
	return &redshiftdata.ExecuteStatementOutput{Id: aws.String("stmt-42")}, nil
}

func (f *fakeDataAPI) DescribeStatement(ctx context.Context, params *redshiftdata.DescribeStatementInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.DescribeStatementOutput, error) {
	return f.describe, nil
}

func (f *fakeDataAPI) GetStatementResult(ctx context.Context, params *redshiftdata.GetStatementResultInput, optFns ...func(*redshiftdata.Options)) (*redshiftdata.GetStatementResultOutput, error) {
	out := f.results[f.resultCalls]
	f.resultCalls++
	return out, nil
}

func TestClientSubmit(t *testing.T) {
	api := &fakeDataAPI{}
	client := New(api, "warehouse", "migrator")

	handle, err := client.Submit(context.Background(), "source-cluster", "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "stmt-42", handle.ID)
	assert.Equal(t, "source-cluster", handle.Cluster)

	require.NotNil(t, api.executeInput)
	assert.Equal(t, "source-cluster", aws.ToString(api.executeInput.ClusterIdentifier))
	assert.Equal(t, "warehouse", aws.ToString(api.executeInput.Database))
	assert.Equal(t, "migrator", aws.ToString(api.executeInput.DbUser))
	assert.Equal(t, "SELECT 1", aws.ToString(api.executeInput.Sql))
	assert.NotEmpty(t, aws.ToString(api.executeInput.ClientToken))
}

func TestClientDescribe(t *testing.T) {
	api := &fakeDataAPI{
		describe: &redshiftdata.DescribeStatementOutput{
			Status:       types.StatusStringFailed,
			HasResultSet: aws.Bool(false),
			Error:        aws.String("permission denied"),
		},
	}
	client := New(api, "warehouse", "migrator")

	description, err := client.Describe(context.Background(), warehouse.Handle{ID: "stmt-42"})
	require.NoError(t, err)
	assert.Equal(t, warehouse.StatusFailed, description.Status)
	assert.False(t, description.HasResultSet)
	assert.Equal(t, "permission denied", description.Error)
}

func TestClientFetchResultPaginates(t *testing.T) {
	api := &fakeDataAPI{
		results: []*redshiftdata.GetStatementResultOutput{
			{
				Records: [][]types.Field{
					{
						&types.FieldMemberStringValue{Value: "public"},
						&types.FieldMemberStringValue{Value: "events"},
					},
				},
				NextToken: aws.String("page-2"),
			},
			{
				Records: [][]types.Field{
					{
						&types.FieldMemberStringValue{Value: "public"},
						&types.FieldMemberStringValue{Value: "users"},
					},
				},
			},
		},
	}
	client := New(api, "warehouse", "migrator")

	rows, err := client.FetchResult(context.Background(), warehouse.Handle{ID: "stmt-42"})
	require.NoError(t, err)
	assert.Equal(t, 2, api.resultCalls)
	assert.Equal(t, []warehouse.Row{
		{"public", "events"},
		{"public", "users"},
	}, rows)
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "events", fieldString(&types.FieldMemberStringValue{Value: "events"}))
	assert.Equal(t, "42", fieldString(&types.FieldMemberLongValue{Value: 42}))
	assert.Equal(t, "1.5", fieldString(&types.FieldMemberDoubleValue{Value: 1.5}))
	assert.Equal(t, "true", fieldString(&types.FieldMemberBooleanValue{Value: true}))
	assert.Equal(t, "blob", fieldString(&types.FieldMemberBlobValue{Value: []byte("blob")}))
	assert.Equal(t, "", fieldString(&types.FieldMemberIsNull{Value: true}))
}
