// Package framebuffer draws display paints into an image, so an emulated
// display unit can be looked at without a TFT attached. The image can be
// written as PNG after every paint.
package framebuffer
