package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

func TestColorDepthPassAttachments(t *testing.T) {
	info := ColorDepthPassDescription(core1_0.FormatR8G8B8A8UnsignedNormalized, core1_0.FormatD32SignedFloat)

	require.Len(t, info.Attachments, 2)

	color := info.Attachments[0]
	assert.Equal(t, core1_0.FormatR8G8B8A8UnsignedNormalized, color.Format)
	assert.Equal(t, core1_0.AttachmentLoadOpClear, color.LoadOp)
	assert.Equal(t, core1_0.AttachmentStoreOpStore, color.StoreOp)
	assert.Equal(t, core1_0.ImageLayoutUndefined, color.InitialLayout)
	assert.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, color.FinalLayout)

	depth := info.Attachments[1]
	assert.Equal(t, core1_0.FormatD32SignedFloat, depth.Format)
	assert.Equal(t, core1_0.AttachmentStoreOpDontCare, depth.StoreOp)
	assert.Equal(t, core1_0.ImageLayoutDepthStencilAttachmentOptimal, depth.FinalLayout)

	require.Len(t, info.Subpasses, 1)
	require.Len(t, info.Subpasses[0].ColorAttachments, 1)
	assert.Equal(t, 0, info.Subpasses[0].ColorAttachments[0].Attachment)
	require.NotNil(t, info.Subpasses[0].DepthStencilAttachment)
	assert.Equal(t, 1, info.Subpasses[0].DepthStencilAttachment.Attachment)
}

func TestColorDepthPassDependencies(t *testing.T) {
	info := ColorDepthPassDescription(core1_0.FormatR8G8B8A8UnsignedNormalized, core1_0.FormatD32SignedFloat)

	require.Len(t, info.SubpassDependencies, 2)

	in := info.SubpassDependencies[0]
	assert.Equal(t, core1_0.SubpassExternal, in.SrcSubpass)
	assert.Equal(t, 0, in.DstSubpass)
	assert.Equal(t, core1_0.PipelineStageFragmentShader, in.SrcStageMask)
	assert.Equal(t, core1_0.AccessShaderRead, in.SrcAccessMask)
	assert.Equal(t, core1_0.PipelineStageColorAttachmentOutput, in.DstStageMask)
	assert.Equal(t, core1_0.AccessColorAttachmentWrite, in.DstAccessMask)
	assert.Equal(t, core1_0.DependencyByRegion, in.DependencyFlags)

	out := info.SubpassDependencies[1]
	assert.Equal(t, 0, out.SrcSubpass)
	assert.Equal(t, core1_0.SubpassExternal, out.DstSubpass)
	assert.Equal(t, core1_0.PipelineStageColorAttachmentOutput, out.SrcStageMask)
	assert.Equal(t, core1_0.AccessColorAttachmentWrite, out.SrcAccessMask)
	assert.Equal(t, core1_0.PipelineStageFragmentShader, out.DstStageMask)
	assert.Equal(t, core1_0.AccessShaderRead, out.DstAccessMask)
}

func TestDepthOnlyPassAttachments(t *testing.T) {
	info := DepthOnlyPassDescription(core1_0.FormatD16UnsignedNormalized)

	require.Len(t, info.Attachments, 1)
	depth := info.Attachments[0]
	assert.Equal(t, core1_0.AttachmentLoadOpClear, depth.LoadOp)
	assert.Equal(t, core1_0.AttachmentStoreOpStore, depth.StoreOp)
	assert.Equal(t, core1_0.ImageLayoutUndefined, depth.InitialLayout)
	assert.Equal(t, core1_0.ImageLayoutDepthStencilReadOnlyOptimal, depth.FinalLayout)

	require.Len(t, info.Subpasses, 1)
	assert.Empty(t, info.Subpasses[0].ColorAttachments)
	require.NotNil(t, info.Subpasses[0].DepthStencilAttachment)
	assert.Equal(t, 0, info.Subpasses[0].DepthStencilAttachment.Attachment)
}

func TestDepthOnlyPassDependencies(t *testing.T) {
	info := DepthOnlyPassDescription(core1_0.FormatD16UnsignedNormalized)

	require.Len(t, info.SubpassDependencies, 2)

	in := info.SubpassDependencies[0]
	assert.Equal(t, core1_0.SubpassExternal, in.SrcSubpass)
	assert.Equal(t, core1_0.PipelineStageFragmentShader, in.SrcStageMask)
	assert.Equal(t, core1_0.AccessShaderRead, in.SrcAccessMask)
	assert.Equal(t, core1_0.PipelineStageEarlyFragmentTests, in.DstStageMask)
	assert.Equal(t, core1_0.AccessDepthStencilAttachmentWrite, in.DstAccessMask)

	out := info.SubpassDependencies[1]
	assert.Equal(t, core1_0.SubpassExternal, out.DstSubpass)
	assert.Equal(t, core1_0.PipelineStageLateFragmentTests, out.SrcStageMask)
	assert.Equal(t, core1_0.AccessDepthStencilAttachmentWrite, out.SrcAccessMask)
	assert.Equal(t, core1_0.PipelineStageFragmentShader, out.DstStageMask)
	assert.Equal(t, core1_0.AccessShaderRead, out.DstAccessMask)
}

func TestPresentPassDescription(t *testing.T) {
	info := PresentPassDescription(core1_0.FormatB8G8R8A8SRGB, core1_0.FormatD32SignedFloat)

	require.Len(t, info.Attachments, 2)
	assert.Equal(t, khr_swapchain.ImageLayoutPresentSrc, info.Attachments[0].FinalLayout)
	assert.Equal(t, core1_0.ImageLayoutDepthStencilAttachmentOptimal, info.Attachments[1].FinalLayout)

	require.Len(t, info.SubpassDependencies, 1)
	dep := info.SubpassDependencies[0]
	assert.Equal(t, core1_0.SubpassExternal, dep.SrcSubpass)
	assert.Equal(t, 0, dep.DstSubpass)
	assert.Equal(t, dep.SrcStageMask, dep.DstStageMask)
	assert.Equal(t, core1_0.AccessColorAttachmentWrite|core1_0.AccessDepthStencilAttachmentWrite, dep.DstAccessMask)
}
