package infrastructure

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"taller-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tidwall/gjson"
)

type TableSchema struct {
	TableName              string                 `json:"TableName"`
	AttributeDefinitions   []AttributeDefinition  `json:"AttributeDefinitions"`
	KeySchema              []KeySchemaElement     `json:"KeySchema"`
	ProvisionedThroughput  Throughput             `json:"ProvisionedThroughput"`
	GlobalSecondaryIndexes []GlobalSecondaryIndex `json:"GlobalSecondaryIndexes,omitempty"`
}

type AttributeDefinition struct {
	AttributeName string `json:"AttributeName"`
	AttributeType string `json:"AttributeType"`
}

type KeySchemaElement struct {
	AttributeName string `json:"AttributeName"`
	KeyType       string `json:"KeyType"`
}

type Throughput struct {
	ReadCapacityUnits  int64 `json:"ReadCapacityUnits"`
	WriteCapacityUnits int64 `json:"WriteCapacityUnits"`
}

type GlobalSecondaryIndex struct {
	IndexName             string             `json:"IndexName"`
	KeySchema             []KeySchemaElement `json:"KeySchema"`
	Projection            Projection         `json:"Projection"`
	ProvisionedThroughput Throughput         `json:"ProvisionedThroughput"`
}

type Projection struct {
	ProjectionType string `json:"ProjectionType"`
}

//go:embed table_schema.json
var tablesSchema []byte

//go:embed locations.json
var locationsData []byte

// GetTables builds the CreateTableInput for a base table name such as "clients".
// Provisioned throughput from the schema is used only when provisioned is true.
func GetTables(tableName, baseName string, provisioned bool) (*dynamodb.CreateTableInput, error) {
	tableJson := gjson.GetBytes(tablesSchema, baseName)
	if !tableJson.Exists() {
		return nil, fmt.Errorf("table schema not found for key: %s", baseName)
	}

	var schema TableSchema
	if err := json.Unmarshal([]byte(tableJson.Raw), &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema JSON: %w", err)
	}

	// Override the table name with the actual table name (including prefix)
	schema.TableName = tableName

	return schema.ToDynamoInput(provisioned), nil
}

// SchemaTables lists the base names of every table in the embedded schema
func SchemaTables() []string {
	var names []string
	gjson.ParseBytes(tablesSchema).ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	sort.Strings(names)
	return names
}

// Locations returns every known province and province/canton pair
func Locations() []models.Location {
	var locations []models.Location
	gjson.ParseBytes(locationsData).ForEach(func(province, cantons gjson.Result) bool {
		p := province.String()
		locations = append(locations, models.Location{ID: models.LocationID(p, ""), Province: p})
		for _, canton := range cantons.Array() {
			c := canton.String()
			locations = append(locations, models.Location{ID: models.LocationID(p, c), Province: p, Canton: c})
		}
		return true
	})
	return locations
}

// ToDynamoInput converts the schema to a DynamoDB CreateTableInput
func (ts *TableSchema) ToDynamoInput(provisioned bool) *dynamodb.CreateTableInput {
	var attrDefs []types.AttributeDefinition
	for _, a := range ts.AttributeDefinitions {
		attrDefs = append(attrDefs, types.AttributeDefinition{
			AttributeName: aws.String(a.AttributeName),
			AttributeType: types.ScalarAttributeType(a.AttributeType),
		})
	}

	var gsis []types.GlobalSecondaryIndex
	for _, g := range ts.GlobalSecondaryIndexes {
		gsi := types.GlobalSecondaryIndex{
			IndexName: aws.String(g.IndexName),
			KeySchema: keySchema(g.KeySchema),
			Projection: &types.Projection{
				ProjectionType: types.ProjectionType(g.Projection.ProjectionType),
			},
		}
		if provisioned {
			gsi.ProvisionedThroughput = throughput(g.ProvisionedThroughput)
		}
		gsis = append(gsis, gsi)
	}

	input := &dynamodb.CreateTableInput{
		TableName:              aws.String(ts.TableName),
		AttributeDefinitions:   attrDefs,
		KeySchema:              keySchema(ts.KeySchema),
		GlobalSecondaryIndexes: gsis,
		BillingMode:            types.BillingModePayPerRequest,
	}
	if provisioned {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = throughput(ts.ProvisionedThroughput)
	}
	return input
}

func keySchema(elements []KeySchemaElement) []types.KeySchemaElement {
	var out []types.KeySchemaElement
	for _, k := range elements {
		out = append(out, types.KeySchemaElement{
			AttributeName: aws.String(k.AttributeName),
			KeyType:       types.KeyType(k.KeyType),
		})
	}
	return out
}

func throughput(t Throughput) *types.ProvisionedThroughput {
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(t.ReadCapacityUnits),
		WriteCapacityUnits: aws.Int64(t.WriteCapacityUnits),
	}
}
