package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"chapel/internal/api"
	"chapel/internal/config"
)

type createCmdOptions struct {
	content   string
	category  string
	imagePath string
	filePath  string
	upload    bool
}

func newCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &createCmdOptions{}
	cmd := &cobra.Command{
		Use:   "create [<title>]",
		Short: "Create a new post",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, cfg, opts, jsonOutput, args)
		},
	}

	bindCreateFlags(cmd, opts)
	return cmd
}

func bindCreateFlags(cmd *cobra.Command, opts *createCmdOptions) {
	cmd.Flags().StringVarP(&opts.content, "content", "b", "", "post body (Markdown); - reads stdin")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", categoryChoices())
	cmd.Flags().StringVarP(&opts.imagePath, "image", "i", "", "image file")
	cmd.Flags().StringVarP(&opts.filePath, "file", "f", "", "Markdown file with YAML front matter")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "send as a multipart form instead of JSON")
}

func runCreate(cmd *cobra.Command, cfg *config.Config, opts *createCmdOptions, jsonOutput *bool, args []string) error {
	req, imagePath, err := buildCreateRequest(cmd.InOrStdin(), opts, args)
	if err != nil {
		return err
	}

	var image []byte
	if imagePath != "" {
		image, err = os.ReadFile(imagePath)
		if err != nil {
			return err
		}
	}

	return withClient(cfg, func(client *api.Client) error {
		resp, err := sendCreate(cmd.Context(), client, req, imagePath, image, opts.upload)
		if err != nil {
			return err
		}
		if *jsonOutput {
			return writeJSON(resp)
		}
		return writePlain("%d\n", resp.ID)
	})
}

func sendCreate(ctx context.Context, client *api.Client, req api.PostCreateRequest, imagePath string, image []byte, upload bool) (api.PostResponse, error) {
	if upload {
		var reader io.Reader
		if len(image) > 0 {
			reader = bytes.NewReader(image)
		}
		return client.UploadPost(ctx, req, filepath.Base(imagePath), reader)
	}
	req.Image = image
	return client.CreatePost(ctx, req)
}

// buildCreateRequest merges a Markdown file, positional title and flags.
// Flags win over the file. The returned image path is resolved relative to
// the Markdown file.
func buildCreateRequest(stdin io.Reader, opts *createCmdOptions, args []string) (api.PostCreateRequest, string, error) {
	var req api.PostCreateRequest
	imagePath := opts.imagePath

	if opts.filePath != "" {
		data, err := os.ReadFile(opts.filePath)
		if err != nil {
			return req, "", err
		}
		post, err := parsePostMarkdown(string(data))
		if err != nil {
			return req, "", err
		}
		req.Title = post.Title
		req.Content = post.Content
		req.Category = post.Category
		if imagePath == "" && post.Image != "" {
			imagePath = post.Image
			if !filepath.IsAbs(imagePath) {
				imagePath = filepath.Join(filepath.Dir(opts.filePath), imagePath)
			}
		}
	}

	if len(args) > 0 {
		req.Title = strings.Join(args, " ")
	}
	if opts.content == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, "", err
		}
		req.Content = string(data)
	} else if opts.content != "" {
		req.Content = opts.content
	}
	if opts.category != "" {
		req.Category = opts.category
	}

	if strings.TrimSpace(req.Title) == "" {
		return req, "", errors.New("title is required")
	}
	return req, imagePath, nil
}
