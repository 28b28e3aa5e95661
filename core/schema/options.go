package schema

// FieldType is the kind tag of a field.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeNumber   FieldType = "number"
	TypeBool     FieldType = "bool"
	TypeEmail    FieldType = "email"
	TypeURL      FieldType = "url"
	TypeEditor   FieldType = "editor"
	TypeDate     FieldType = "date"
	TypeAutodate FieldType = "autodate"
	TypeSelect   FieldType = "select"
	TypeFile     FieldType = "file"
	TypeRelation FieldType = "relation"
	TypeJSON     FieldType = "json"
	TypePassword FieldType = "password"
	TypeGeoPoint FieldType = "geoPoint"
)

// Options holds the kind-specific attributes of a field. The set of implementations is closed:
// every known FieldType maps to exactly one Options type, and anything else decodes to
// UnknownOptions with its attributes kept in Field.Extra.
type Options interface {
	Kind() FieldType
	properties() []namedProperty
	clone() Options
}

// NewOptions returns empty options for the given kind.
func NewOptions(kind FieldType) Options {
	switch kind {
	case TypeText:
		return &TextOptions{}
	case TypeNumber:
		return &NumberOptions{}
	case TypeBool:
		return &BoolOptions{}
	case TypeEmail:
		return &EmailOptions{}
	case TypeURL:
		return &URLOptions{}
	case TypeEditor:
		return &EditorOptions{}
	case TypeDate:
		return &DateOptions{}
	case TypeAutodate:
		return &AutodateOptions{}
	case TypeSelect:
		return &SelectOptions{}
	case TypeFile:
		return &FileOptions{}
	case TypeRelation:
		return &RelationOptions{}
	case TypeJSON:
		return &JSONOptions{}
	case TypePassword:
		return &PasswordOptions{}
	case TypeGeoPoint:
		return &GeoPointOptions{}
	default:
		return &UnknownOptions{kind: kind}
	}
}

// TextOptions are the attributes of a text field.
type TextOptions struct {
	Min                 Value[int]
	Max                 Value[int]
	Pattern             Value[string]
	AutogeneratePattern Value[string]
	PrimaryKey          Value[bool]
}

func (o *TextOptions) Kind() FieldType { return TypeText }
func (o *TextOptions) clone() Options  { c := *o; return &c }
func (o *TextOptions) properties() []namedProperty {
	return []namedProperty{
		{"min", &o.Min},
		{"max", &o.Max},
		{"pattern", &o.Pattern},
		{"autogeneratePattern", &o.AutogeneratePattern},
		{"primaryKey", &o.PrimaryKey},
	}
}

// NumberOptions are the attributes of a number field. Min and Max are nullable.
type NumberOptions struct {
	Min     Value[float64]
	Max     Value[float64]
	OnlyInt Value[bool]
}

func (o *NumberOptions) Kind() FieldType { return TypeNumber }
func (o *NumberOptions) clone() Options  { c := *o; return &c }
func (o *NumberOptions) properties() []namedProperty {
	return []namedProperty{
		{"min", &o.Min},
		{"max", &o.Max},
		{"onlyInt", &o.OnlyInt},
	}
}

// BoolOptions has no kind-specific attributes.
type BoolOptions struct{}

func (o *BoolOptions) Kind() FieldType             { return TypeBool }
func (o *BoolOptions) clone() Options              { return &BoolOptions{} }
func (o *BoolOptions) properties() []namedProperty { return nil }

// EmailOptions restrict the accepted domains of an email field.
type EmailOptions struct {
	ExceptDomains Value[[]string]
	OnlyDomains   Value[[]string]
}

func (o *EmailOptions) Kind() FieldType { return TypeEmail }
func (o *EmailOptions) clone() Options  { c := *o; return &c }
func (o *EmailOptions) properties() []namedProperty {
	return []namedProperty{
		{"exceptDomains", &o.ExceptDomains},
		{"onlyDomains", &o.OnlyDomains},
	}
}

// URLOptions restrict the accepted domains of a url field.
type URLOptions struct {
	ExceptDomains Value[[]string]
	OnlyDomains   Value[[]string]
}

func (o *URLOptions) Kind() FieldType { return TypeURL }
func (o *URLOptions) clone() Options  { c := *o; return &c }
func (o *URLOptions) properties() []namedProperty {
	return []namedProperty{
		{"exceptDomains", &o.ExceptDomains},
		{"onlyDomains", &o.OnlyDomains},
	}
}

// EditorOptions are the attributes of a rich text field.
type EditorOptions struct {
	MaxSize     Value[int64]
	ConvertURLs Value[bool]
}

func (o *EditorOptions) Kind() FieldType { return TypeEditor }
func (o *EditorOptions) clone() Options  { c := *o; return &c }
func (o *EditorOptions) properties() []namedProperty {
	return []namedProperty{
		{"maxSize", &o.MaxSize},
		{"convertURLs", &o.ConvertURLs},
	}
}

// DateOptions bound a date field. Bounds are datetime strings and nullable.
type DateOptions struct {
	Min Value[string]
	Max Value[string]
}

func (o *DateOptions) Kind() FieldType { return TypeDate }
func (o *DateOptions) clone() Options  { c := *o; return &c }
func (o *DateOptions) properties() []namedProperty {
	return []namedProperty{
		{"min", &o.Min},
		{"max", &o.Max},
	}
}

// AutodateOptions decide when the remote stamps an autodate field.
type AutodateOptions struct {
	OnCreate Value[bool]
	OnUpdate Value[bool]
}

func (o *AutodateOptions) Kind() FieldType { return TypeAutodate }
func (o *AutodateOptions) clone() Options  { c := *o; return &c }
func (o *AutodateOptions) properties() []namedProperty {
	return []namedProperty{
		{"onCreate", &o.OnCreate},
		{"onUpdate", &o.OnUpdate},
	}
}

// SelectOptions enumerate the allowed values of a select field.
type SelectOptions struct {
	Values    Value[[]string]
	MaxSelect Value[int]
}

func (o *SelectOptions) Kind() FieldType { return TypeSelect }
func (o *SelectOptions) clone() Options  { c := *o; return &c }
func (o *SelectOptions) properties() []namedProperty {
	return []namedProperty{
		{"values", &o.Values},
		{"maxSelect", &o.MaxSelect},
	}
}

// FileOptions constrain uploads to a file field.
type FileOptions struct {
	MaxSelect Value[int]
	MaxSize   Value[int64]
	MimeTypes Value[[]string]
	Thumbs    Value[[]string]
	Protected Value[bool]
}

func (o *FileOptions) Kind() FieldType { return TypeFile }
func (o *FileOptions) clone() Options  { c := *o; return &c }
func (o *FileOptions) properties() []namedProperty {
	return []namedProperty{
		{"maxSelect", &o.MaxSelect},
		{"maxSize", &o.MaxSize},
		{"mimeTypes", &o.MimeTypes},
		{"thumbs", &o.Thumbs},
		{"protected", &o.Protected},
	}
}

// RelationOptions name the target collection of a relation field.
type RelationOptions struct {
	CollectionID  Value[string]
	CascadeDelete Value[bool]
	MinSelect     Value[int]
	MaxSelect     Value[int]
}

func (o *RelationOptions) Kind() FieldType { return TypeRelation }
func (o *RelationOptions) clone() Options  { c := *o; return &c }
func (o *RelationOptions) properties() []namedProperty {
	return []namedProperty{
		{"collectionId", &o.CollectionID},
		{"cascadeDelete", &o.CascadeDelete},
		{"minSelect", &o.MinSelect},
		{"maxSelect", &o.MaxSelect},
	}
}

// JSONOptions are the attributes of a json field.
type JSONOptions struct {
	MaxSize Value[int64]
}

func (o *JSONOptions) Kind() FieldType { return TypeJSON }
func (o *JSONOptions) clone() Options  { c := *o; return &c }
func (o *JSONOptions) properties() []namedProperty {
	return []namedProperty{
		{"maxSize", &o.MaxSize},
	}
}

// PasswordOptions are the attributes of an auth collection's password field.
type PasswordOptions struct {
	Pattern Value[string]
	Min     Value[int]
	Max     Value[int]
	Cost    Value[int]
}

func (o *PasswordOptions) Kind() FieldType { return TypePassword }
func (o *PasswordOptions) clone() Options  { c := *o; return &c }
func (o *PasswordOptions) properties() []namedProperty {
	return []namedProperty{
		{"pattern", &o.Pattern},
		{"min", &o.Min},
		{"max", &o.Max},
		{"cost", &o.Cost},
	}
}

// GeoPointOptions has no kind-specific attributes.
type GeoPointOptions struct{}

func (o *GeoPointOptions) Kind() FieldType             { return TypeGeoPoint }
func (o *GeoPointOptions) clone() Options              { return &GeoPointOptions{} }
func (o *GeoPointOptions) properties() []namedProperty { return nil }

// UnknownOptions stands in for kinds this package does not model.
type UnknownOptions struct {
	kind FieldType
}

func (o *UnknownOptions) Kind() FieldType             { return o.kind }
func (o *UnknownOptions) clone() Options              { c := *o; return &c }
func (o *UnknownOptions) properties() []namedProperty { return nil }
