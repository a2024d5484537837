package artifact

import (
	"math"
	"testing"
)

const sampleArtifactJSON = `{
  "source": "out/deck.pptx",
  "slide_width_emu": 12192000,
  "slide_height_emu": 6858000,
  "slides": [
    {
      "index": 0,
      "boxes": [
        {
          "name": "title",
          "left_emu": 457200,
          "top_emu": 274320,
          "width_emu": 11277600,
          "height_emu": 685800,
          "font_name": "Noto Sans KR Bold",
          "font_size_pt": 24,
          "paragraphs": [{"text": "Market entry review", "level": -1}]
        },
        {
          "name": "body",
          "left_emu": 457200,
          "top_emu": 1828800,
          "width_emu": 11277600,
          "height_emu": 3657600,
          "paragraphs": [
            {"text": "Demand doubled in two years.", "level": 0, "font_size_pt": 12},
            {"text": "", "level": 0, "font_size_pt": 12},
            {"text": "Margins hold above 20%.", "level": 1, "font_size_pt": 11}
          ]
        }
      ]
    }
  ]
}`

func TestParseArtifact(t *testing.T) {
	a, err := Parse([]byte(sampleArtifactJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(a.Slides) != 1 || len(a.Slides[0].Boxes) != 2 {
		t.Fatalf("unexpected structure: %+v", a)
	}

	title := a.Slides[0].Boxes[0]
	if got := title.Text(); got != "Market entry review" {
		t.Fatalf("title text = %q", got)
	}
	if got := title.EffectiveFontSize(); got != 24 {
		t.Fatalf("title size = %v", got)
	}
	if got := title.BottomEMU(); got != 274320+685800 {
		t.Fatalf("title bottom = %d", got)
	}
}

func TestParseRejectsMissingCanvas(t *testing.T) {
	if _, err := Parse([]byte(`{"slides": []}`)); err == nil {
		t.Fatal("expected an error for a missing canvas")
	}
}

func TestEffectiveFontFallsBackToParagraphs(t *testing.T) {
	a, err := Parse([]byte(sampleArtifactJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body := a.Slides[0].Boxes[1]
	if got := body.EffectiveFontSize(); got != 12 {
		t.Fatalf("body size = %v, want largest paragraph size 12", got)
	}
	if got := body.EffectiveFontName(); got != "" {
		t.Fatalf("body font = %q, want empty", got)
	}
}

func TestBulletParagraphsSkipBlank(t *testing.T) {
	a, err := Parse([]byte(sampleArtifactJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bullets := a.Slides[0].Boxes[1].BulletParagraphs()
	if len(bullets) != 2 {
		t.Fatalf("bullet count = %d, want 2", len(bullets))
	}
}

func TestUnitConversions(t *testing.T) {
	if got := PtToEMU(12); got != 152400 {
		t.Fatalf("PtToEMU(12) = %d", got)
	}
	if got := EMUToPt(152400); got != 12 {
		t.Fatalf("EMUToPt = %v", got)
	}
	if got := EMUToInches(914400); got != 1 {
		t.Fatalf("EMUToInches = %v", got)
	}
}

func TestCenterYRatio(t *testing.T) {
	box := &TextBox{TopEMU: 0, HeightEMU: 6858000}
	if got := box.CenterYRatio(6858000); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("CenterYRatio = %v, want 0.5", got)
	}
}
