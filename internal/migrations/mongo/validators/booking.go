package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"lock_id",
			"user_id",
			"period_type",
			"start_date",
			"end_date",
			"status",
			"payment_deadline",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"lock_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"period_type": bson.M{
				"enum": []string{"daily", "weekly", "monthly"},
			},

			"status": bson.M{
				"enum": []string{"pending_payment", "pending_verification", "active", "expired", "cancelled"},
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"payment_deadline": bson.M{
				"bsonType": "date",
			},
		},
	},
}
