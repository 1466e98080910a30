package flatten

import (
	"github.com/Faultbox/fbxflatten/pkg/fbxscene"
	"github.com/Faultbox/fbxflatten/pkg/scene"
)

// extractMaterial copies the ten semantic channels of a source material.
func extractMaterial(src *fbxscene.Material) scene.Material {
	dst := scene.NewMaterial(src.Name)

	maps := [scene.NumChannels]*fbxscene.MaterialMap{
		scene.Diffuse:            &src.Diffuse,
		scene.Specular:           &src.Specular,
		scene.Reflection:         &src.Reflection,
		scene.Transparency:       &src.Transparency,
		scene.Emission:           &src.Emission,
		scene.Ambient:            &src.Ambient,
		scene.NormalMap:          &src.NormalMap,
		scene.Bump:               &src.Bump,
		scene.Displacement:       &src.Displacement,
		scene.VectorDisplacement: &src.VectorDisplacement,
	}
	for k, m := range maps {
		extractChannel(dst.Channel(scene.ChannelKind(k)), m)
	}
	return dst
}

func extractChannel(dst *scene.Channel, src *fbxscene.MaterialMap) {
	if !src.HasValue {
		return
	}
	dst.Color = src.Value
	if src.Texture == nil || src.Texture.Filename == "" {
		return
	}
	dst.TexturePath = src.Texture.Filename
	dst.WrapU = convertWrap(src.Texture.WrapU)
	dst.WrapV = convertWrap(src.Texture.WrapV)
}

func convertWrap(w fbxscene.WrapMode) scene.WrapMode {
	switch w {
	case fbxscene.WrapRepeat:
		return scene.WrapRepeat
	case fbxscene.WrapMirror:
		return scene.WrapMirror
	default:
		return scene.WrapClamp
	}
}
