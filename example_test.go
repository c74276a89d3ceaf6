package imgdedup_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/imgdedup"
	"github.com/hupe1980/imgdedup/blobstore"
	"github.com/hupe1980/imgdedup/store"
	"github.com/hupe1980/imgdedup/testutil"
)

// Example_addAndCheck registers an image and checks a copy of it.
func Example_addAndCheck() {
	ctx := context.Background()
	svc := imgdedup.New(store.New(blobstore.NewMemoryStore()))

	png := testutil.EncodePNG(testutil.GradientImage(64, 64, 0))

	added, err := svc.Add(ctx, imgdedup.Upload{Filename: "cat.png", Data: png})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("added:", added.Added, "bits:", added.BitWidth)

	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "copy.png", Data: png}, 10)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("duplicated:", res.Duplicated)
	// Output:
	// added: [cat.png] bits: 256
	// duplicated: true
}

// Example_opaqueAsset shows that assets without images match only exact copies.
func Example_opaqueAsset() {
	ctx := context.Background()
	svc := imgdedup.New(store.New(blobstore.NewMemoryStore()))

	_, err := svc.Add(ctx, imgdedup.Upload{Filename: "mesh.bin", Data: []byte("vertex data")})
	if err != nil {
		log.Fatal(err)
	}

	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "mesh2.bin", Data: []byte("vertex data!")}, 0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("bits:", res.BitWidth, "duplicated:", res.Duplicated)
	// Output: bits: 144 duplicated: false
}
