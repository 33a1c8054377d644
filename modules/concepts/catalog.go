package concepts

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"variation-canvas-server/modules/placeholder"
)

// 카메라 앵글 카탈로그 - 고정 테이블에서 랜덤 subset 선택
var cameraAngleCatalog = []struct {
	Label  string
	Prompt string
}{
	{"Front", "front view, subject facing the camera directly"},
	{"Front-Right", "three-quarter view from the front right"},
	{"Right", "right side profile view"},
	{"Back-Right", "three-quarter view from the back right"},
	{"Back", "back view, subject facing away from the camera"},
	{"Back-Left", "three-quarter view from the back left"},
	{"Left", "left side profile view"},
	{"Front-Left", "three-quarter view from the front left"},
	{"Low Angle", "dramatic low angle looking up at the subject"},
	{"High Angle", "high angle looking down at the subject"},
	{"Overhead", "top-down overhead shot"},
	{"Dutch Tilt", "tilted dutch angle composition"},
}

// 디렉터 카탈로그 - 연출 스타일 reference
var directorCatalog = []struct {
	Name   string
	Prompt string
}{
	{"Wes Anderson", "symmetrical composition, pastel color blocking, deadpan staging"},
	{"Christopher Nolan", "imax-scale realism, cool desaturated palette, practical lighting"},
	{"Wong Kar-wai", "neon-soaked color, motion blur, intimate handheld framing"},
	{"Denis Villeneuve", "monumental scale, fog and silhouette, muted monochrome palette"},
	{"Greta Gerwig", "warm naturalism, lived-in production design, golden light"},
	{"Bong Joon-ho", "precise blocking, social contrast in one frame, wide lenses"},
	{"David Fincher", "green-gray grade, locked-off camera, surgical composition"},
	{"Hayao Miyazaki", "painterly skies, soft organic detail, gentle light"},
	{"Ridley Scott", "smoke and backlight, dense atmosphere, epic texture"},
	{"Sofia Coppola", "dreamy haze, pastel melancholy, candid framing"},
	{"Quentin Tarantino", "saturated pulp color, low trunk-shot angles, bold crop"},
	{"Park Chan-wook", "operatic color contrast, ornate symmetry, cruel elegance"},
}

// B-roll 카탈로그 - 컷어웨이 샷 타입
var bRollCatalog = []struct {
	Tag    string
	Prompt string
}{
	{"establishing", "wide establishing shot of the same scene and subject"},
	{"insert", "tight insert shot of a key detail of the subject"},
	{"cutaway", "cutaway shot of the surrounding environment"},
	{"over-shoulder", "over-the-shoulder perspective toward the subject"},
	{"macro", "extreme macro close-up of surface texture"},
	{"tracking", "side tracking shot with shallow depth of field"},
	{"pov", "first-person point-of-view shot"},
	{"reaction", "reaction-style medium close-up"},
	{"top-shot", "overhead table-top style shot"},
	{"silhouette", "backlit silhouette of the subject"},
	{"reflection", "shot of the subject through a reflection"},
	{"rack-focus", "rack focus from foreground detail to the subject"},
}

// CameraAngleGenerator - 고정 앵글 카탈로그에서 count개 랜덤 선택
type CameraAngleGenerator struct{}

func (g *CameraAngleGenerator) Generate(ctx context.Context, req Request) ([]Concept, error) {
	indexes, err := pickIndexes(len(cameraAngleCatalog), req.Count)
	if err != nil {
		return nil, err
	}

	out := make([]Concept, req.Count)
	for i, idx := range indexes {
		entry := cameraAngleCatalog[idx]
		out[i] = Concept{
			Prompt: buildPrompt(entry.Prompt, req),
			Metadata: placeholder.Metadata{
				Kind:        placeholder.KindCameraAngle,
				CameraAngle: &placeholder.CameraAngleMeta{Label: entry.Label},
			},
		}
	}
	return out, nil
}

// DirectorGenerator - 디렉터 연출 스타일 카탈로그에서 count개 랜덤 선택
type DirectorGenerator struct{}

func (g *DirectorGenerator) Generate(ctx context.Context, req Request) ([]Concept, error) {
	indexes, err := pickIndexes(len(directorCatalog), req.Count)
	if err != nil {
		return nil, err
	}

	out := make([]Concept, req.Count)
	for i, idx := range indexes {
		entry := directorCatalog[idx]
		prompt := fmt.Sprintf("reimagined as if directed by %s: %s", entry.Name, entry.Prompt)
		out[i] = Concept{
			Prompt: buildPrompt(prompt, req),
			Metadata: placeholder.Metadata{
				Kind:     placeholder.KindDirector,
				Director: &placeholder.DirectorMeta{DirectorName: entry.Name},
			},
		}
	}
	return out, nil
}

// BRollGenerator - b-roll 샷 타입 카탈로그에서 count개 랜덤 선택
type BRollGenerator struct{}

func (g *BRollGenerator) Generate(ctx context.Context, req Request) ([]Concept, error) {
	indexes, err := pickIndexes(len(bRollCatalog), req.Count)
	if err != nil {
		return nil, err
	}

	out := make([]Concept, req.Count)
	for i, idx := range indexes {
		entry := bRollCatalog[idx]
		out[i] = Concept{
			Prompt: buildPrompt(entry.Prompt, req),
			Metadata: placeholder.Metadata{
				Kind:  placeholder.KindBRoll,
				BRoll: &placeholder.BRollMeta{Tag: entry.Tag},
			},
		}
	}
	return out, nil
}

// pickIndexes - 카탈로그에서 겹치지 않게 count개 선택 (셔플 후 앞에서 자름)
func pickIndexes(catalogSize, count int) ([]int, error) {
	if count <= 0 {
		return nil, fmt.Errorf("concept count must be positive, got %d", count)
	}
	if count > catalogSize {
		return nil, fmt.Errorf("concept count %d exceeds catalog size %d", count, catalogSize)
	}

	perm := rand.Perm(catalogSize)
	return perm[:count], nil
}

// buildPrompt - 카탈로그 프롬프트에 style descriptor와 user context 합성
func buildPrompt(base string, req Request) string {
	var b strings.Builder
	b.WriteString(base)

	if req.Style != nil {
		b.WriteString(fmt.Sprintf(". Keep the original %s style with a %s mood and %s",
			req.Style.Style, req.Style.Mood, req.Style.Lighting))
		if len(req.Style.Palette) > 0 {
			b.WriteString(", palette: " + strings.Join(req.Style.Palette, ", "))
		}
		b.WriteString(".")
	}

	if req.UserContext != "" {
		b.WriteString(" " + req.UserContext)
	}

	b.WriteString(" Preserve the identity of the subject from the reference image.")
	return b.String()
}
