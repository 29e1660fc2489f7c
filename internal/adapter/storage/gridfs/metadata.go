package gridfs

import (
	"regexp"
	"strconv"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	keyGroupID     = "groupId"
	keyContentType = "contentType"
)

// legacyKeys maps attribute names to older spellings found in stored documents.
var legacyKeys = map[string]string{
	domain.AttrFuelType: "feul",
}

func encodeMetadata(obj domain.StoredObject) bson.D {
	md := bson.D{{Key: keyGroupID, Value: obj.Metadata.GroupID}}
	for _, name := range domain.AttributeNames {
		v, _ := obj.Metadata.Attributes.Get(name)
		md = append(md, bson.E{Key: name, Value: v})
	}
	if obj.ContentType != "" {
		md = append(md, bson.E{Key: keyContentType, Value: obj.ContentType})
	}
	return md
}

// decodeMetadata reads a metadata document leniently. Missing or null values
// are reported in Absent, arrays resolve to their first element and scalars
// are rendered as strings.
func decodeMetadata(raw bson.Raw) (domain.Metadata, string) {
	var md domain.Metadata
	if len(raw) == 0 {
		md.Absent = append(md.Absent, domain.AttributeNames...)
		return md, ""
	}

	md.GroupID, _ = scalar(raw.Lookup(keyGroupID))
	for _, name := range domain.AttributeNames {
		v, ok := scalar(raw.Lookup(name))
		if !ok {
			if legacy, has := legacyKeys[name]; has {
				v, ok = scalar(raw.Lookup(legacy))
			}
		}
		if !ok {
			md.Absent = append(md.Absent, name)
			continue
		}
		md.Attributes.Set(name, v)
	}
	contentType, _ := scalar(raw.Lookup(keyContentType))
	return md, contentType
}

func scalar(v bson.RawValue) (string, bool) {
	switch v.Type {
	case bsontype.String:
		return v.StringValue(), true
	case bsontype.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10), true
	case bsontype.Int64:
		return strconv.FormatInt(v.Int64(), 10), true
	case bsontype.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64), true
	case bsontype.Boolean:
		return strconv.FormatBool(v.Boolean()), true
	case bsontype.ObjectID:
		return v.ObjectID().Hex(), true
	case bsontype.Array:
		values, err := v.Array().Values()
		if err != nil || len(values) == 0 {
			return "", false
		}
		return scalar(values[0])
	}
	return "", false
}

// buildFilter translates an ObjectFilter into a files collection query.
func buildFilter(f domain.ObjectFilter) bson.M {
	filter := bson.M{}
	if f.GroupID != "" {
		filter["metadata."+keyGroupID] = f.GroupID
	}
	if f.Attribute == nil {
		return filter
	}

	var cond interface{} = f.Attribute.Value
	if f.Attribute.Mode == domain.MatchSubstring {
		cond = primitive.Regex{Pattern: regexp.QuoteMeta(f.Attribute.Value), Options: "i"}
	}
	legacy, hasLegacy := legacyKeys[f.Attribute.Field]
	if !hasLegacy {
		filter["metadata."+f.Attribute.Field] = cond
		return filter
	}
	filter["$or"] = bson.A{
		bson.M{"metadata." + f.Attribute.Field: cond},
		bson.M{"metadata." + legacy: cond},
	}
	return filter
}
