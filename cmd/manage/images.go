package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"coreflow-cms/internal/app"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/media"

	"github.com/spf13/cobra"
)

func imagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage case study images",
	}

	var folder string
	upload := &cobra.Command{
		Use:   "upload",
		Short: "Upload local case study images to Cloudinary and point the case studies at them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(10*time.Minute, func(ctx context.Context, a *app.App) error {
				cfg := a.Cfg
				if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
					return errors.New("images upload: CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required")
				}
				up, err := media.NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
				if err != nil {
					return err
				}
				if err := uploadImages(ctx, cmd.OutOrStdout(), a.CaseStudies, up, cfg.MediaRoot, folder); err != nil {
					return err
				}
				cacheNotice(cmd.OutOrStdout(), a)
				return nil
			})
		},
	}
	upload.Flags().StringVar(&folder, "folder", "casestudies", "destination folder on Cloudinary")
	cmd.AddCommand(upload)
	return cmd
}

// uploadImages rehosts every local image reference and stores the returned URL on the case study.
func uploadImages(ctx context.Context, out io.Writer, cases *casestudies.Service, up media.Uploader, root, folder string) error {
	items, err := cases.All(ctx)
	if err != nil {
		return err
	}
	refs := make([]string, 0, len(items))
	for _, item := range items {
		refs = append(refs, item.Image)
	}

	hosted, err := media.UploadLocal(ctx, up, root, folder, refs)
	// keep what was uploaded before a failure
	for _, item := range items {
		url, ok := hosted[item.Image]
		if !ok {
			continue
		}
		if setErr := cases.SetImage(ctx, item.ID, url); setErr != nil {
			return errors.Join(err, setErr)
		}
		fmt.Fprintf(out, "%s -> %s\n", item.Slug, url)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "images upload completed: %d uploaded\n", len(hosted))
	return nil
}
