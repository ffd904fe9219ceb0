package model

// Store paths (Firebase 시절 경로 구조 유지):
//
//	whiteboards/<id>                      컨테이너 레코드
//	whiteboardMarkings/<wb>/<key>         마킹 컬렉션
//	whiteboardText/<wb>/<key>             텍스트 컬렉션
//	whiteboardShapes/<wb>/<key>           도형 컬렉션
//
// Entity collections are keyed by whiteboard id, not embedded in the
// container record. The synchronizer subscribes to each collection
// independently for incremental updates.

// Whiteboard 화이트보드 컨테이너 레코드
type Whiteboard struct {
	Name        string `json:"name"`
	Background  string `json:"background"`
	Created     int64  `json:"created"`
	CreatedBy   string `json:"createdBy,omitempty"`
	SnapshotRef string `json:"snapshot,omitempty"`
}

// WhiteboardOptions 화이트보드 생성 옵션
type WhiteboardOptions struct {
	Name       string `json:"name"`
	Background string `json:"background"`
}

// DefaultWhiteboardOptions 기본 생성 옵션
func DefaultWhiteboardOptions() WhiteboardOptions {
	return WhiteboardOptions{
		Name:       "Unnamed Whiteboard",
		Background: "#fff",
	}
}

// Point 좌표
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rectangle 텍스트 박스 영역
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Segment 패스 세그먼트 (베지어 핸들 포함 가능)
type Segment struct {
	Point     Point  `json:"point"`
	HandleIn  *Point `json:"handleIn,omitempty"`
	HandleOut *Point `json:"handleOut,omitempty"`
}

// Stroke 선 스타일
type Stroke struct {
	Color      string    `json:"color"`
	Width      float64   `json:"width"`
	Cap        string    `json:"cap"`
	Join       string    `json:"join"`
	DashOffset float64   `json:"dashOffset"`
	Scaling    bool      `json:"scaling"`
	DashArray  []float64 `json:"dashArray"`
	MiterLimit float64   `json:"miterLimit"`
}

// Fill 채우기 스타일
type Fill struct {
	Color string `json:"color"`
}

// Shadow 그림자 스타일
type Shadow struct {
	Color  string  `json:"color"`
	Blur   float64 `json:"blur"`
	Offset Point   `json:"offset"`
}

// Style 엔티티 스타일 (stroke/fill/shadow)
type Style struct {
	Stroke Stroke `json:"stroke"`
	Fill   Fill   `json:"fill"`
	Shadow Shadow `json:"shadow"`
}

// Font 텍스트 폰트
type Font struct {
	Family string  `json:"family"`
	Weight int     `json:"weight"`
	Size   float64 `json:"size"`
}

// DefaultStyle 기본 스타일
func DefaultStyle() Style {
	return Style{
		Stroke: Stroke{
			Color:      "#111",
			Width:      2,
			Cap:        "round",
			Join:       "miter",
			DashOffset: 0,
			Scaling:    true,
			DashArray:  []float64{},
			MiterLimit: 10,
		},
		Fill: Fill{
			Color: "#0bf",
		},
		Shadow: Shadow{
			Color: "rgba(0, 0, 0, 0)",
			Blur:  0,
		},
	}
}

// DefaultFont 기본 폰트
func DefaultFont() Font {
	return Font{
		Family: "sans-serif",
		Weight: 400,
		Size:   32,
	}
}

// MarkingOptions 마킹 생성 옵션
type MarkingOptions struct {
	Style   Style     `json:"style"`
	Started int64     `json:"started"`
	Path    []Segment `json:"path"`
}

// TextOptions 텍스트 생성 옵션
type TextOptions struct {
	Style    Style     `json:"style"`
	Rotation float64   `json:"rotation"`
	Bounds   Rectangle `json:"bounds"`
	Content  string    `json:"content"`
	Font     Font      `json:"font"`
}

// ShapeOptions 도형 생성 옵션
type ShapeOptions struct {
	Style     Style     `json:"style"`
	ShapeType ShapeType `json:"shapeType"`
	Path      []Segment `json:"path"`
}
