package filter

import (
	"errors"

	"github.com/soypat/terrabrush"
	"github.com/soypat/terrabrush/surface"
)

// TipFilter multiplies the mask by a brush tip rendered at the brush rotation: dst = src * tip.
type TipFilter struct {
	Tip terrabrush.Tip
}

func (*TipFilter) Name() string { return "tip" }

func (tf *TipFilter) Eval(fc Context, src, dst *surface.Surface) error {
	if tf.Tip == nil {
		return errors.New("tip filter without tip")
	} else if !src.SameSize(dst) {
		return surface.ErrMismatchedSize
	}
	err := terrabrush.RenderTip(dst, tf.Tip, fc.BrushRotation, &fc)
	if err != nil {
		return err
	}
	in, out := src.Pix(), dst.Pix()
	for i := range out {
		out[i] *= in[i]
	}
	return nil
}
