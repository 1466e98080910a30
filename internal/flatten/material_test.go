package flatten

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/math"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

func TestExtractMaterial_EmptyFilename(t *testing.T) {
	src := &fbxscene.Material{
		Name: "Painted",
		Diffuse: fbxscene.MaterialMap{
			Value:    math.Vec4{X: 0.2, Y: 0.4, Z: 0.6, W: 1},
			HasValue: true,
			Texture:  &fbxscene.Texture{Filename: "", WrapU: fbxscene.WrapMirror, WrapV: fbxscene.WrapRepeat},
		},
	}

	m := extractMaterial(src)

	assert.Equal(t, "Painted", m.Name)
	assert.Empty(t, m.Diffuse.TexturePath)
	assert.Equal(t, math.Vec4{X: 0.2, Y: 0.4, Z: 0.6, W: 1}, m.Diffuse.Color)
	assert.Equal(t, scene.WrapClamp, m.Diffuse.WrapU)
	assert.Equal(t, scene.WrapClamp, m.Diffuse.WrapV)
}

func TestExtractMaterial_Channels(t *testing.T) {
	tex := func(name string, u, v fbxscene.WrapMode) *fbxscene.Texture {
		return &fbxscene.Texture{Filename: name, WrapU: u, WrapV: v}
	}
	src := &fbxscene.Material{
		Name:      "Full",
		Specular:  fbxscene.MaterialMap{Value: math.Vec4{X: 1, W: 1}, HasValue: true, Texture: tex("spec.png", fbxscene.WrapRepeat, fbxscene.WrapClamp)},
		Emission:  fbxscene.MaterialMap{Value: math.Vec4{Y: 1}, HasValue: true},
		NormalMap: fbxscene.MaterialMap{Texture: tex("normal.png", fbxscene.WrapRepeat, fbxscene.WrapRepeat)},
		VectorDisplacement: fbxscene.MaterialMap{
			Value: math.Vec4{Z: 2}, HasValue: true, Texture: tex("vdisp.exr", fbxscene.WrapMirror, fbxscene.WrapMirror),
		},
	}

	m := extractMaterial(src)

	tests := []struct {
		kind    scene.ChannelKind
		color   math.Vec4
		texture string
		wrapU   scene.WrapMode
		wrapV   scene.WrapMode
	}{
		{scene.Diffuse, math.Vec4{}, "", scene.WrapClamp, scene.WrapClamp},
		{scene.Specular, math.Vec4{X: 1, W: 1}, "spec.png", scene.WrapRepeat, scene.WrapClamp},
		{scene.Emission, math.Vec4{Y: 1}, "", scene.WrapClamp, scene.WrapClamp},
		// A texture without a value is not copied
		{scene.NormalMap, math.Vec4{}, "", scene.WrapClamp, scene.WrapClamp},
		{scene.VectorDisplacement, math.Vec4{Z: 2}, "vdisp.exr", scene.WrapMirror, scene.WrapMirror},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c := m.Channel(tt.kind)
			assert.Equal(t, tt.color, c.Color)
			assert.Equal(t, tt.texture, c.TexturePath)
			assert.Equal(t, tt.wrapU, c.WrapU)
			assert.Equal(t, tt.wrapV, c.WrapV)
		})
	}
}

func TestConvertWrap(t *testing.T) {
	assert.Equal(t, scene.WrapRepeat, convertWrap(fbxscene.WrapRepeat))
	assert.Equal(t, scene.WrapClamp, convertWrap(fbxscene.WrapClamp))
	assert.Equal(t, scene.WrapMirror, convertWrap(fbxscene.WrapMirror))
	assert.Equal(t, scene.WrapClamp, convertWrap(fbxscene.WrapMode(7)))
}
