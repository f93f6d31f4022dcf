package validators

import "go.mongodb.org/mongo-driver/bson"

var LockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"lock_number", "status", "is_active", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"lock_number": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 20,
			},

			"status": bson.M{
				"enum": []string{"available", "booked", "reserved", "rented", "maintenance"},
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"reserved_to": bson.M{
				"bsonType": "string",
			},

			"reservation_expires_at": bson.M{
				"bsonType": "date",
			},

			"pricing": bson.M{
				"bsonType": "object",
				"required": []string{"daily"},
				"properties": bson.M{
					"daily":   bson.M{"bsonType": []string{"double", "int", "long", "decimal"}},
					"weekly":  bson.M{"bsonType": []string{"double", "int", "long", "decimal"}},
					"monthly": bson.M{"bsonType": []string{"double", "int", "long", "decimal"}},
				},
			},
		},
	},
}
