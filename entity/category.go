package entity

// Category, SubCategory and Tag are reference data seeded at startup.
// DefaultCategorySlug is the bucket every new listing lands in; its absence
// at create time is an internal error, not a validation one.
const DefaultCategorySlug = "others"

type Category struct {
	Id          string `json:"id" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Slug        string `json:"slug" bson:"slug"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Icon        string `json:"icon,omitempty" bson:"icon,omitempty"`
}

type SubCategory struct {
	Id         string `json:"id" bson:"_id"`
	Name       string `json:"name" bson:"name"`
	Slug       string `json:"slug" bson:"slug"`
	CategoryId string `json:"category_id" bson:"category_id"`
}

type Tag struct {
	Id    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}
