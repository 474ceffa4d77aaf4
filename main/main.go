// Command bson2json reads encoded documents and prints them as extended
// JSON, one document per line. Input is a stream of bare length-prefixed
// documents, or checksummed frames when -framed is set.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rawbytedev/bson"
	"github.com/rawbytedev/bson/pkg/extjson"
	"github.com/rawbytedev/bson/pkg/frame"
)

func main() {
	relaxed := flag.Bool("relaxed", false, "print relaxed extended JSON instead of canonical")
	framed := flag.Bool("framed", false, "input is a stream of checksummed frames")
	lossy := flag.Bool("lossy", false, "replace invalid UTF-8 instead of failing")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	codec := bson.NewCodec(bson.Options{UTF8Lossy: *lossy})
	render := extjson.Marshal
	if *relaxed {
		render = extjson.MarshalRelaxed
	}

	for n := 1; ; n++ {
		doc, err := next(in, codec, *framed)
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatalf("document %d: %v", n, err)
		}
		text, err := render(doc)
		if err != nil {
			log.Fatalf("document %d: %v", n, err)
		}
		fmt.Println(string(text))
	}
}

func next(in io.Reader, codec *bson.Codec, framed bool) (*bson.Document, error) {
	if framed {
		payload, err := frame.ReadFrame(in)
		if err != nil {
			return nil, err
		}
		return codec.Decode(payload)
	}
	var doc *bson.Document
	if err := codec.NewDecoder(in).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
