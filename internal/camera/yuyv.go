package camera

import "image"

// yuyvToRGBA converts a packed YUYV 4:2:2 frame to RGBA using BT.601
// coefficients. Each 4-byte group [Y0 U Y1 V] carries two pixels sharing one
// chroma pair.
func yuyvToRGBA(buf []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x += 2 {
			base := (y*w + x) * 2
			if base+3 >= len(buf) {
				return img
			}
			y0 := int(buf[base])
			u := int(buf[base+1]) - 128
			y1 := int(buf[base+2])
			v := int(buf[base+3]) - 128

			setYUV(img, x, y, y0, u, v)
			if x+1 < w {
				setYUV(img, x+1, y, y1, u, v)
			}
		}
	}
	return img
}

func setYUV(img *image.RGBA, x, y, lum, u, v int) {
	c := lum - 16
	r := clamp8((298*c + 409*v + 128) >> 8)
	g := clamp8((298*c - 100*u - 208*v + 128) >> 8)
	b := clamp8((298*c + 516*u + 128) >> 8)
	off := img.PixOffset(x, y)
	img.Pix[off+0] = r
	img.Pix[off+1] = g
	img.Pix[off+2] = b
	img.Pix[off+3] = 0xff
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
