package model

// EntityKind 엔티티 종류 (마킹/텍스트/도형)
type EntityKind string

const (
	KindMarking EntityKind = "marking"
	KindText    EntityKind = "text"
	KindShape   EntityKind = "shape"
)

func (k EntityKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the three entity kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindMarking, KindText, KindShape:
		return true
	}
	return false
}

// EditableProperties returns the mutation whitelist for the kind. Edit
// entries naming any other property are ignored during compaction.
func (k EntityKind) EditableProperties() []string {
	// Identical for all three kinds today, but kept per-kind so a new
	// kind can restrict (or extend) its own whitelist.
	switch k {
	case KindMarking, KindText, KindShape:
		return []string{"style", "path"}
	}
	return nil
}

// ShapeType 도형 타입
type ShapeType string

const (
	ShapeLine    ShapeType = "line"
	ShapeArc     ShapeType = "arc"
	ShapeEllipse ShapeType = "ellipse"
	ShapePolygon ShapeType = "polygon"
	ShapeStar    ShapeType = "star"
	ShapeCustom  ShapeType = "custom"
)

func (s ShapeType) String() string {
	return string(s)
}

func (s ShapeType) Valid() bool {
	switch s {
	case ShapeLine, ShapeArc, ShapeEllipse, ShapePolygon, ShapeStar, ShapeCustom:
		return true
	}
	return false
}
