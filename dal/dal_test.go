package dal

import (
	"context"
	"errors"
	"testing"

	"taller-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// MockDynamoAPI implements dynamoAPI for testing
type MockDynamoAPI struct {
	mock.Mock
}

func (m *MockDynamoAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *MockDynamoAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.PutItemOutput), args.Error(1)
}

func (m *MockDynamoAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

func (m *MockDynamoAPI) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.DeleteItemOutput), args.Error(1)
}

func (m *MockDynamoAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.QueryOutput), args.Error(1)
}

func (m *MockDynamoAPI) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.ScanOutput), args.Error(1)
}

func (m *MockDynamoAPI) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.CreateTableOutput), args.Error(1)
}

func (m *MockDynamoAPI) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.DescribeTableOutput), args.Error(1)
}

// MockLogger implements the logger interface for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(args ...interface{})                 { m.Called(args...) }
func (m *MockLogger) Debugf(format string, args ...interface{}) { m.Called(format, args) }
func (m *MockLogger) Info(args ...interface{})                  { m.Called(args...) }
func (m *MockLogger) Infof(format string, args ...interface{})  { m.Called(format, args) }
func (m *MockLogger) Warn(args ...interface{})                  { m.Called(args...) }
func (m *MockLogger) Warnf(format string, args ...interface{})  { m.Called(format, args) }
func (m *MockLogger) Error(args ...interface{})                 { m.Called(args...) }
func (m *MockLogger) Errorf(format string, args ...interface{}) { m.Called(format, args) }
func (m *MockLogger) Fatal(args ...interface{})                 { m.Called(args...) }
func (m *MockLogger) Fatalf(format string, args ...interface{}) { m.Called(format, args) }

type record struct {
	ID   string `dynamodbav:"id"`
	Name string `dynamodbav:"name"`
}

// DALTestSuite defines a test suite for DAL functions
type DALTestSuite struct {
	suite.Suite
	ctx    context.Context
	api    *MockDynamoAPI
	logger *MockLogger
	db     *DynamoDBClient
}

// SetupTest runs before each test
func (suite *DALTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.api = &MockDynamoAPI{}
	suite.logger = &MockLogger{}
	suite.logger.On("Errorf", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	suite.db = newDynamoDBClient(suite.api, &models.Config{}, suite.logger)
}

// TearDownTest runs after each test
func (suite *DALTestSuite) TearDownTest() {
	suite.api.AssertExpectations(suite.T())
}

func TestDALTestSuite(t *testing.T) {
	suite.Run(t, new(DALTestSuite))
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (suite *DALTestSuite) TestGetItemByPrimaryKey() {
	suite.api.On("GetItem", suite.ctx, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		key, ok := in.Key["id"].(*types.AttributeValueMemberS)
		return *in.TableName == "t_clients" && ok && key.Value == "c-1"
	})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"id":   &types.AttributeValueMemberS{Value: "c-1"},
		"name": &types.AttributeValueMemberS{Value: "Ana"},
	}}, nil).Once()

	var result record
	err := suite.db.GetItem(suite.ctx, models.QueryConfig{TableName: "t_clients", KeyName: "id", KeyValue: "c-1"}, &result)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), record{ID: "c-1", Name: "Ana"}, result)
}

func (suite *DALTestSuite) TestGetItemNotFound() {
	suite.api.On("GetItem", suite.ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()

	var result record
	err := suite.db.GetItem(suite.ctx, models.QueryConfig{TableName: "t", KeyName: "id", KeyValue: "x"}, &result)

	assert.ErrorIs(suite.T(), err, models.ErrNotFound)
}

func (suite *DALTestSuite) TestGetItemByIndex() {
	suite.api.On("Query", suite.ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return *in.IndexName == "plate-index" && in.ExpressionAttributeNames["#kn0"] == "plate"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{"id": &types.AttributeValueMemberS{Value: "v-1"}},
	}}, nil).Once()

	var result record
	err := suite.db.GetItem(suite.ctx, models.QueryConfig{
		TableName: "t_vehicles", IndexName: "plate-index", KeyName: "plate", KeyValue: "ABC123",
	}, &result)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "v-1", result.ID)
}

func (suite *DALTestSuite) TestGetItemByIndexNoMatch() {
	suite.api.On("Query", suite.ctx, mock.Anything).Return(&dynamodb.QueryOutput{}, nil).Once()

	var result record
	err := suite.db.GetItem(suite.ctx, models.QueryConfig{TableName: "t", IndexName: "i", KeyName: "k", KeyValue: "v"}, &result)

	assert.ErrorIs(suite.T(), err, models.ErrNotFound)
}

func (suite *DALTestSuite) TestGetItemTransportError() {
	suite.api.On("GetItem", suite.ctx, mock.Anything).Return(nil, errors.New("DynamoDB error")).Once()

	var result record
	err := suite.db.GetItem(suite.ctx, models.QueryConfig{TableName: "t", KeyName: "id", KeyValue: "x"}, &result)

	assert.EqualError(suite.T(), err, "DynamoDB error")
}

func (suite *DALTestSuite) TestPutItemIfAbsent() {
	suite.api.On("PutItem", suite.ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return *in.ConditionExpression == "attribute_not_exists(#pk)" && in.ExpressionAttributeNames["#pk"] == "id"
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()

	assert.NoError(suite.T(), suite.db.PutItemIfAbsent(suite.ctx, "t", "id", record{ID: "1"}))
}

func (suite *DALTestSuite) TestPutItemIfAbsentConflict() {
	suite.api.On("PutItem", suite.ctx, mock.Anything).Return(nil, conditionFailed()).Once()

	err := suite.db.PutItemIfAbsent(suite.ctx, "t", "id", record{ID: "1"})

	assert.ErrorIs(suite.T(), err, models.ErrConditionFailed)
}

func (suite *DALTestSuite) TestUpdateItemBuildsSortedExpression() {
	suite.api.On("UpdateItem", suite.ctx, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return *in.UpdateExpression == "SET #u0 = :u0, #u1 = :u1" &&
			in.ExpressionAttributeNames["#u0"] == "discount" &&
			in.ExpressionAttributeNames["#u1"] == "observations" &&
			*in.ConditionExpression == "attribute_exists(#pk)"
	})).Return(&dynamodb.UpdateItemOutput{}, nil).Once()

	err := suite.db.UpdateItem(suite.ctx, "t", "id", "s-1", map[string]interface{}{
		"observations": "ok",
		"discount":     10.0,
	})
	assert.NoError(suite.T(), err)
}

func (suite *DALTestSuite) TestUpdateMissingItemIsNotFound() {
	suite.api.On("UpdateItem", suite.ctx, mock.Anything).Return(nil, conditionFailed()).Once()

	err := suite.db.UpdateItem(suite.ctx, "t", "id", "gone", map[string]interface{}{"a": 1})

	assert.ErrorIs(suite.T(), err, models.ErrNotFound)
}

func (suite *DALTestSuite) TestUpdateItemIfGuardsOnExpectedValues() {
	suite.api.On("UpdateItem", suite.ctx, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		from, ok := in.ExpressionAttributeValues[":c0"].(*types.AttributeValueMemberS)
		return *in.ConditionExpression == "attribute_exists(#pk) AND #c0 = :c0" &&
			in.ExpressionAttributeNames["#c0"] == "status" && ok && from.Value == "pending"
	})).Return(nil, conditionFailed()).Once()

	err := suite.db.UpdateItemIf(suite.ctx, "t", "id", "s-1",
		map[string]interface{}{"status": "in_process"},
		map[string]interface{}{"status": "pending"})

	assert.ErrorIs(suite.T(), err, models.ErrConditionFailed)
}

func (suite *DALTestSuite) TestUpdateItemRequiresFields() {
	assert.Error(suite.T(), suite.db.UpdateItem(suite.ctx, "t", "id", "s-1", nil))
}

func (suite *DALTestSuite) TestQueryByIndexFollowsPages() {
	page2Key := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "1"}}
	suite.api.On("Query", suite.ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{{"id": &types.AttributeValueMemberS{Value: "1"}}},
		LastEvaluatedKey: page2Key,
	}, nil).Once()
	suite.api.On("Query", suite.ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{"id": &types.AttributeValueMemberS{Value: "2"}}},
	}, nil).Once()

	var results []record
	err := suite.db.QueryByIndex(suite.ctx, "t_photos", "serviceId-index", "serviceId", "s-1", &results)

	require.NoError(suite.T(), err)
	assert.Len(suite.T(), results, 2)
}

func (suite *DALTestSuite) TestScanError() {
	suite.api.On("Scan", suite.ctx, mock.Anything).Return(nil, errors.New("Scan error")).Once()

	var results []record
	err := suite.db.Scan(suite.ctx, "t", &results)

	assert.EqualError(suite.T(), err, "Scan error")
}

func (suite *DALTestSuite) TestDeleteItem() {
	suite.api.On("DeleteItem", suite.ctx, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		return *in.TableName == "t"
	})).Return(&dynamodb.DeleteItemOutput{}, nil).Once()

	assert.NoError(suite.T(), suite.db.DeleteItem(suite.ctx, "t", "id", "x"))
}

func (suite *DALTestSuite) TestDescribeTable() {
	tableName := "test-table"
	suite.api.On("DescribeTable", suite.ctx, mock.Anything).Return(&dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableName: &tableName},
	}, nil).Once()

	result, err := suite.db.DescribeTable(suite.ctx, tableName)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), tableName, *result.Table.TableName)
}

func TestMapConditionErrorPassesOtherErrors(t *testing.T) {
	other := errors.New("throttled")
	assert.Same(t, other, mapConditionError(other, models.ErrConditionFailed))
	assert.NoError(t, mapConditionError(nil, models.ErrConditionFailed))
}

func TestKeyAttributeTypes(t *testing.T) {
	assert.IsType(t, &types.AttributeValueMemberS{}, keyAttribute(models.QueryConfig{KeyValue: "a"}))
	assert.IsType(t, &types.AttributeValueMemberN{}, keyAttribute(models.QueryConfig{KeyValue: "1", KeyType: models.NumberType}))
	assert.IsType(t, &types.AttributeValueMemberB{}, keyAttribute(models.QueryConfig{KeyValue: "a", KeyType: models.BinaryType}))
}
